package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"datalake/internal/config"
	"datalake/internal/metrics"
)

const testCreds = "[AWS]\nAWS_ACCESS_KEY_ID=AKIATEST\nAWS_SECRET_ACCESS_KEY=secret\n"

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// fixture lays out an input root, an empty output root and a credential
// file.
func fixture(t *testing.T) (in, out, creds string) {
	t.Helper()
	dir := t.TempDir()
	in, out, creds = filepath.Join(dir, "in"), filepath.Join(dir, "out"), filepath.Join(dir, "dl.cfg")
	writeFile(t, filepath.Join(in, "song_data/A/B/C/TRABCEI128F424C983.json"),
		`{"num_songs": 1, "artist_id": "ARJNIUY12298900C91", "artist_latitude": null, "artist_longitude": null, "artist_location": "", "artist_name": "Adelitas Way", "song_id": "SOBLFFE12AF72AA5BA", "title": "Scream", "duration": 213.9424, "year": 2009}`+"\n")
	writeFile(t, filepath.Join(in, "log_data/2018/11/2018-11-13-events.json"),
		`{"artist":"Adelitas Way","auth":"Logged In","firstName":"Ryan","gender":"M","itemInSession":0,"lastName":"Smith","length":213.9424,"level":"free","location":"San Jose-Sunnyvale-Santa Clara, CA","method":"PUT","page":"NextSong","registration":1541016707796.0,"sessionId":583,"song":"Scream","status":200,"ts":1542069637796,"userAgent":"Mozilla/5.0","userId":"26"}`+"\n")
	writeFile(t, creds, testCreds)
	return in, out, creds
}

func TestRunMain_EndToEnd(t *testing.T) {
	in, out, creds := fixture(t)
	var stdout, stderr bytes.Buffer

	code := runMain(context.Background(), []string{
		"-input", in, "-output", out, "-credentials", creds, "-metrics-backend", "none", "-show", "1",
	}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit=%d stderr:\n%s", code, stderr.String())
	}
	for _, table := range []string{"songs_table", "artists_table", "users_table", "time_table", "songplays_table"} {
		if _, err := os.Stat(filepath.Join(out, table, "_SUCCESS")); err != nil {
			t.Errorf("%s not written: %v", table, err)
		}
	}
	if !strings.Contains(stdout.String(), "SOBLFFE12AF72AA5BA") {
		t.Errorf("preview missing song id:\n%s", stdout.String())
	}
}

func TestRunMain_DryRunWritesNothing(t *testing.T) {
	in, out, creds := fixture(t)
	var stdout, stderr bytes.Buffer

	code := runMain(context.Background(), []string{
		"-input", in, "-output", out, "-credentials", creds, "-dry-run",
	}, &stdout, &stderr)
	// songs_table is read back for the join even when nothing is written.
	if code != 1 {
		t.Fatalf("exit=%d, want 1", code)
	}
	if _, err := os.Stat(filepath.Join(out, "users_table")); !os.IsNotExist(err) {
		t.Fatalf("users_table written in dry-run: %v", err)
	}
	if !strings.Contains(stdout.String(), "|song_id") && !strings.Contains(stdout.String(), "song_id|") {
		t.Fatalf("dry run should preview tables:\n%s", stdout.String())
	}
}

func TestRunMain_ConfigErrors(t *testing.T) {
	in, out, creds := fixture(t)

	tests := []struct {
		name string
		args []string
		want int
		msg  string
	}{
		{"validate only", []string{"-input", in, "-output", out, "-credentials", creds, "-validate"}, 0, "configuration is valid"},
		{"missing input", []string{"-output", out, "-credentials", creds}, 1, "input root must not be empty"},
		{"missing credential file", []string{"-input", in, "-output", out, "-credentials", filepath.Join(out, "nope.cfg")}, 1, "credentials"},
		{"missing config file", []string{"-config", filepath.Join(out, "nope.yaml")}, 1, "load config"},
		{"bad flag", []string{"-bogus"}, 2, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := runMain(context.Background(), tt.args, &stdout, &stderr)
			if code != tt.want {
				t.Fatalf("exit=%d, want %d; stderr:\n%s", code, tt.want, stderr.String())
			}
			if !strings.Contains(stderr.String(), tt.msg) {
				t.Fatalf("stderr missing %q:\n%s", tt.msg, stderr.String())
			}
		})
	}
}

func TestRunMain_ConfigFile(t *testing.T) {
	in, out, creds := fixture(t)
	cfgPath := filepath.Join(t.TempDir(), "job.yaml")
	writeFile(t, cfgPath, strings.Join([]string{
		"job: sparkify-file",
		"input: " + in,
		"output: " + out,
		"credentials: " + creds,
		"storage:",
		"  kind: sqlite",
		"  dsn: file:" + filepath.Join(t.TempDir(), "lake.db"),
		"log:",
		"  format: console",
	}, "\n"))

	var stdout, stderr bytes.Buffer
	code := runMain(context.Background(), []string{"-config", cfgPath}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit=%d stderr:\n%s", code, stderr.String())
	}
	if _, err := os.Stat(filepath.Join(out, "songs_table")); !os.IsNotExist(err) {
		t.Fatalf("sqlite run should not write parquet output: %v", err)
	}
}

func TestFlagsApply(t *testing.T) {
	t.Setenv("METRICS_BACKEND", "datadog")
	t.Setenv("PUSHGATEWAY_URL", "http://gw:9091")

	f, err := parseFlags([]string{"-input", "s3a://udacity-dend", "-dry-run", "-v"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	job := config.Job{WriteData: true, Output: "keep/", Show: 3}
	f.apply(&job)
	if job.Input != "s3a://udacity-dend/" || job.WriteData || job.Output != "keep/" || job.Show != 3 {
		t.Fatalf("job=%+v", job)
	}
	if job.Log.Level != "debug" || job.Metrics.Backend != "datadog" || job.Metrics.PushgatewayURL != "http://gw:9091" {
		t.Fatalf("job=%+v", job)
	}

	f, _ = parseFlags([]string{"-metrics-backend", "none"}, &bytes.Buffer{})
	job = config.Job{}
	f.apply(&job)
	if job.Metrics.Backend != "none" {
		t.Fatalf("flag must win over env, got %q", job.Metrics.Backend)
	}
}

func TestSetupMetrics(t *testing.T) {
	log := zap.NewNop()

	flush := setupMetrics(config.Job{Job: "j", Metrics: config.Metrics{Backend: "datadog", DatadogAddr: "127.0.0.1:8125"}}, log)
	metrics.RecordRow("j", "read", 1)
	flush()

	flush = setupMetrics(config.Job{Metrics: config.Metrics{Backend: "bogus"}}, log)
	flush()
	flush = setupMetrics(config.Job{}, log)
	flush()
}
