package cli

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// NewRecalculateCmd asks a running server to re-score every stored result of
// a quiz and rebuild its statistic. The server owns the live statistic, so
// the work runs there rather than in this process.
func NewRecalculateCmd(port *string) *cobra.Command {
	var quizID, server string
	cmd := &cobra.Command{
		Use:   "recalculate",
		Short: "Re-score all results of a quiz against its current definition",
		RunE: func(cmd *cobra.Command, args []string) error {
			if quizID == "" {
				return fmt.Errorf("--quiz is required")
			}
			if server == "" {
				server = "http://localhost:" + *port
			}
			updated, err := requestRecalculation(cmd, server, quizID)
			if err != nil {
				return err
			}
			log.Printf("quiz %s recalculated, %d results changed", quizID, updated)
			return nil
		},
	}
	cmd.Flags().StringVar(&quizID, "quiz", "", "id of the quiz to recalculate")
	cmd.Flags().StringVar(&server, "server", "", "base URL of the running server (default http://localhost:<port>)")
	return cmd
}

func requestRecalculation(cmd *cobra.Command, server, quizID string) (int, error) {
	endpoint := strings.TrimSuffix(server, "/") + "/quizzes/" + url.PathEscape(quizID) + "/recalculate"
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, endpoint, nil)
	if err != nil {
		return 0, err
	}
	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("recalculate quiz %s: %w", quizID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var failure struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		return 0, fmt.Errorf("recalculate quiz %s: %s: %s", quizID, resp.Status, failure.Message)
	}
	var body struct {
		ResultsUpdated int `json:"resultsUpdated"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	return body.ResultsUpdated, nil
}
