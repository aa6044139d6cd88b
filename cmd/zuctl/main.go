package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dcposch/zucast/internal/feed"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

var serverURL string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "zuctl",
	Short: "zucast operator CLI",
	Long: `zuctl inspects a running zucast server: engine status, the raw
transaction log, and the global feed.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()
		if serverURL == "" {
			serverURL = viper.GetString("zucast_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "zucast server URL (default http://localhost:8080)")
	rootCmd.AddCommand(statusCmd, tailCmd, feedCmd, versionCmd)
	tailCmd.Flags().Int("since", 0, "first transaction id to return")
	feedCmd.Flags().String("algo", "hot", "feed ordering: hot or latest")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show engine state, counts, and init/validate health",
	RunE: func(cmd *cobra.Command, args []string) error {
		var out struct {
			Feed feed.Status `json:"feed"`
			Auth struct {
				NTokens int `json:"nTokens"`
			} `json:"auth"`
		}
		if err := getJSON("/api/status", &out); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "state\t%s\n", out.Feed.State)
		fmt.Fprintf(w, "transactions\t%d\n", out.Feed.NumTransactions)
		fmt.Fprintf(w, "users\t%d\n", out.Feed.NumUsers)
		fmt.Fprintf(w, "posts\t%d\n", out.Feed.NumPosts)
		fmt.Fprintf(w, "tokens\t%d\n", out.Auth.NTokens)
		fmt.Fprintf(w, "init\t%dms\n", out.Feed.Init.ElapsedMs)
		if out.Feed.Validate.Done {
			fmt.Fprintf(w, "validate\t%d checked, %d failed (%dms)\n",
				out.Feed.Validate.Checked, out.Feed.Validate.Failed, out.Feed.Validate.ElapsedMs)
		}
		return w.Flush()
	},
}

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print raw transactions from the log",
	RunE: func(cmd *cobra.Command, args []string) error {
		since, _ := cmd.Flags().GetInt("since")
		var out struct {
			Since        int                `json:"since"`
			Transactions []feed.Transaction `json:"transactions"`
		}
		if err := getJSON(fmt.Sprintf("/api/log?since=%d", since), &out); err != nil {
			return err
		}

		for i, tx := range out.Transactions {
			line, err := json.Marshal(tx)
			if err != nil {
				return err
			}
			fmt.Printf("%d\t%s\n", out.Since+i, line)
		}
		return nil
	},
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Print the global feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		algo, _ := cmd.Flags().GetString("algo")
		var out struct {
			Threads []feed.Thread `json:"threads"`
		}
		if err := getJSON("/api/feed?algo="+algo, &out); err != nil {
			return err
		}

		for _, t := range out.Threads {
			for i, p := range t.Posts {
				indent := ""
				if i > 0 {
					indent = "  "
				}
				ts := time.UnixMilli(p.TimeMs).Format(time.RFC3339)
				fmt.Printf("%s#%d %s uid=%d likes=%d  %s\n", indent, p.ID, ts, p.User.UID, p.NLikes, p.Content)
			}
			fmt.Println()
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print zuctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("zuctl", version)
	},
}

func getJSON(path string, out any) error {
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Get(serverURL + path)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
