package testrail

import "fmt"

// TestRail API v2 resources used by the RunController. Paths are relative to the API root
// returned by APIClient.URL and may carry extra query parameters after an "&".
const (
	addResultsURL    = "add_results_for_cases/%d/"
	addRunURL        = "add_run/%d"
	getRunsURL       = "get_runs/%d"
	getTestsInRunURL = "get_tests/%d"
	updateRunURL     = "update_run/%d"
	getCasesURL      = "get_cases/%d&suite_id=%d"
	closeRunURL      = "close_run/%d"
	getRunURL        = "get_run/%d"
)

func addResultsPath(runID int) string { return fmt.Sprintf(addResultsURL, runID) }
func addRunPath(projectID int) string { return fmt.Sprintf(addRunURL, projectID) }
func getRunsPath(projectID int) string { return fmt.Sprintf(getRunsURL, projectID) }
func getTestsInRunPath(runID int) string { return fmt.Sprintf(getTestsInRunURL, runID) }
func updateRunPath(runID int) string { return fmt.Sprintf(updateRunURL, runID) }
func closeRunPath(runID int) string { return fmt.Sprintf(closeRunURL, runID) }
func getRunPath(runID int) string { return fmt.Sprintf(getRunURL, runID) }
func getCasesPath(projectID, suiteID int) string {
	return fmt.Sprintf(getCasesURL, projectID, suiteID)
}
