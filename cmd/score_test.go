package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var scoreNow = time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)

const scoreAlerts = `[
  {"id": "a", "summary": "Apache httpd flaw on Linux", "cvss": 9.8, "published": "2024-05-09T10:00:00Z"},
  {"id": "b", "summary": "Fortinet VPN bypass", "cvss": 7.5, "published": "2024-05-08T10:00:00Z"},
  {"id": "c", "summary": "Windows printer bug", "cvss": 9.0, "published": "2024-05-07T10:00:00Z"},
  {"id": "d", "summary": "Apache Tomcat issue", "cvss": 5.0, "published": "2024-01-01T10:00:00Z"}
]`

const scoreIOCs = `[
  {"ip": "192.168.1.10", "server": "apache", "os": "linux", "security_solutions": "fortinet"}
]`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runScoreForTest(t *testing.T, opts scoreOptions) scoreResult {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, runScore(opts, scoreNow, &out))

	var result scoreResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	return result
}

func TestRunScoreRanksAllAlerts(t *testing.T) {
	opts := scoreOptions{
		alertsPath: writeFixture(t, "alerts.json", scoreAlerts),
		iocsPath:   writeFixture(t, "iocs.json", scoreIOCs),
		rangeValue: "all",
		page:       1,
		pageSize:   10,
	}

	result := runScoreForTest(t, opts)

	ids := make([]string, 0, len(result.Items))
	scores := make([]int, 0, len(result.Items))
	for _, item := range result.Items {
		ids = append(ids, item.ID)
		scores = append(scores, item.RelevanceScore)
	}
	require.Equal(t, []string{"a", "d", "b"}, ids)
	require.Equal(t, []int{19, 9, 7}, scores)
	require.Equal(t, 1, result.Stats.TotalIOCs)
	require.Equal(t, 4, result.Stats.TotalAlerts)
	require.Equal(t, 3, result.Stats.RelevantAlerts)
	require.Equal(t, 1, result.Stats.Severity.Critical)
	require.Equal(t, "all", result.Range)
}

func TestRunScoreRangeAndPaging(t *testing.T) {
	opts := scoreOptions{
		alertsPath: writeFixture(t, "alerts.json", scoreAlerts),
		iocsPath:   writeFixture(t, "iocs.json", scoreIOCs),
		rangeValue: "week",
		page:       2,
		pageSize:   1,
	}

	result := runScoreForTest(t, opts)

	require.Len(t, result.Items, 1)
	require.Equal(t, "b", result.Items[0].ID)
	require.Equal(t, 2, result.Page.Total)
	require.Equal(t, 2, result.Page.TotalPages)
	require.Equal(t, 3, result.Stats.TotalAlerts)
}

func TestRunScoreSurfacesFileErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.json")
	opts := scoreOptions{
		alertsPath: missing,
		iocsPath:   writeFixture(t, "iocs.json", scoreIOCs),
	}

	err := runScore(opts, scoreNow, &bytes.Buffer{})
	require.Error(t, err)
	require.Contains(t, err.Error(), missing)

	opts.alertsPath = writeFixture(t, "broken.json", `[{"id": `)
	err = runScore(opts, scoreNow, &bytes.Buffer{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse")
}

func TestRunScoreRejectsUnknownRange(t *testing.T) {
	opts := scoreOptions{
		alertsPath: writeFixture(t, "alerts.json", scoreAlerts),
		iocsPath:   writeFixture(t, "iocs.json", scoreIOCs),
		rangeValue: "decade",
	}
	require.Error(t, runScore(opts, scoreNow, &bytes.Buffer{}))
}

func TestRunScoreWithProfile(t *testing.T) {
	profile := writeFixture(t, "profile.yaml", `
weights:
  ip: 10
  server: 1
  os: 1
  security: 1
cvss_bonus:
  critical: 0
  high: 0
  medium: 0
industry_bonus: 0
threshold: 5
min_matches: 1
os_min_length: 2
dedupe_tokens: true
`)
	opts := scoreOptions{
		alertsPath:  writeFixture(t, "alerts.json", scoreAlerts),
		iocsPath:    writeFixture(t, "iocs.json", scoreIOCs),
		profilePath: profile,
		page:        1,
		pageSize:    10,
	}

	result := runScoreForTest(t, opts)
	require.Empty(t, result.Items)
	require.Equal(t, 0, result.Stats.RelevantAlerts)
}

func TestLoadEnvFileIgnoresMissingFile(t *testing.T) {
	require.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), ".env")))
	require.NoError(t, loadEnvFile(""))

	path := writeFixture(t, ".env", "IOC_RADAR_TEST_VALUE=from-file\n")
	t.Setenv("IOC_RADAR_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("IOC_RADAR_TEST_VALUE"))
	require.NoError(t, loadEnvFile(path))
	require.Equal(t, "from-file", os.Getenv("IOC_RADAR_TEST_VALUE"))
}
