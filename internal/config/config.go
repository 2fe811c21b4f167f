// Package config loads uiverify configuration from CLI flags and environment
// variables, validates it, and provides sensible defaults.
//
// Flags win over environment variables. S3 mirroring is enabled by setting
// BUCKET_NAME; the AWS_ variables then supply the credentials.
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kuitang/uiverify/internal/browser"
	"github.com/kuitang/uiverify/internal/errs"
	"github.com/kuitang/uiverify/internal/obs"
	"github.com/kuitang/uiverify/internal/s3client"
	"github.com/kuitang/uiverify/internal/urlutil"
)

const (
	defaultBaseURL        = "http://localhost:4321"
	defaultChecklist      = "smoke"
	defaultArtifactDir    = "."
	defaultViewport       = "1280x720"
	defaultS3Region       = "auto"
	defaultArtifactPrefix = "uiverify"
)

// Config holds all runner configuration.
type Config struct {
	// Target and checklist
	BaseURL   string // BASE_URL, --url
	Checklist string // UIVERIFY_CHECKLIST, --checklist (built-in name or YAML path)
	List      bool   // --list: print built-in checklists and exit

	// Output
	ArtifactDir string // ARTIFACT_DIR, --artifacts
	Report      bool   // UIVERIFY_REPORT, --report
	LogFormat   string // LOG_FORMAT, --log-format
	Debug       bool   // DEBUG, --debug

	// Browser
	Engine         string        // BROWSER_ENGINE, --engine
	Headless       bool          // HEADLESS, --headed inverts
	Viewport       string        // VIEWPORT, --viewport (WIDTHxHEIGHT)
	SlowMo         time.Duration // SLOW_MO, --slow-mo
	Install        bool          // PLAYWRIGHT_INSTALL, --install
	ForwardConsole bool          // FORWARD_CONSOLE, --console

	// S3 artifact mirror (same variables as a Tigris bucket attached with `fly storage create`)
	AWSEndpointS3      string // AWS_ENDPOINT_URL_S3
	AWSRegion          string // AWS_REGION
	AWSAccessKeyID     string // AWS_ACCESS_KEY_ID
	AWSSecretAccessKey string // AWS_SECRET_ACCESS_KEY
	AWSBucketName      string // BUCKET_NAME
	AWSPublicURL       string // S3_PUBLIC_URL
	S3PathStyle        bool   // S3_PATH_STYLE
	ArtifactPrefix     string // ARTIFACT_PREFIX
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Flags holds parsed CLI flag values. Only flags present on the command
// line override the environment.
type Flags struct {
	URL            string
	Checklist      string
	List           bool
	ArtifactDir    string
	Report         bool
	LogFormat      string
	Debug          bool
	Engine         string
	Headed         bool
	Viewport       string
	SlowMo         time.Duration
	Install        bool
	ForwardConsole bool

	set map[string]bool
}

func (f Flags) isSet(name string) bool {
	return f.set[name]
}

// ParseFlags parses args (without the program name). Usage and parse
// errors are written to output. A -h/--help request returns flag.ErrHelp.
func ParseFlags(args []string, output io.Writer) (Flags, error) {
	var f Flags
	fs := flag.NewFlagSet("uiverify", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&f.URL, "url", "", "Base URL of the app under test (default "+defaultBaseURL+", overrides BASE_URL)")
	fs.StringVar(&f.Checklist, "checklist", "", "Built-in checklist name or YAML file (default "+defaultChecklist+")")
	fs.BoolVar(&f.List, "list", false, "List built-in checklists and exit")
	fs.StringVar(&f.ArtifactDir, "artifacts", "", "Directory screenshots are written to (default current directory)")
	fs.BoolVar(&f.Report, "report", false, "Also write an HTML run report")
	fs.StringVar(&f.LogFormat, "log-format", "", "Log format: text or json")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.Engine, "engine", "", "Browser engine: chromium, firefox or webkit")
	fs.BoolVar(&f.Headed, "headed", false, "Show the browser window")
	fs.StringVar(&f.Viewport, "viewport", "", "Viewport as WIDTHxHEIGHT (default "+defaultViewport+")")
	fs.DurationVar(&f.SlowMo, "slow-mo", 0, "Delay inserted between browser operations")
	fs.BoolVar(&f.Install, "install", false, "Download the Playwright driver and browser before running")
	fs.BoolVar(&f.ForwardConsole, "console", false, "Forward browser console output to the log")

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}
	if fs.NArg() > 0 {
		return Flags{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	f.set = map[string]bool{}
	fs.Visit(func(fl *flag.Flag) {
		f.set[fl.Name] = true
	})
	return f, nil
}

// LoadConfig loads configuration from environment variables and applies
// the explicitly set flags on top. Validation failures are returned as an
// errs.InvalidArgument wrapping a *ValidationError.
func LoadConfig(f Flags) (*Config, error) {
	cfg := &Config{}

	cfg.BaseURL = getEnvOrDefault("BASE_URL", defaultBaseURL)
	cfg.Checklist = getEnvOrDefault("UIVERIFY_CHECKLIST", defaultChecklist)
	cfg.ArtifactDir = getEnvOrDefault("ARTIFACT_DIR", defaultArtifactDir)
	cfg.Report = parseBoolOrDefault("UIVERIFY_REPORT", false)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", obs.FormatText)
	cfg.Debug = parseBoolOrDefault("DEBUG", false)

	cfg.Engine = getEnvOrDefault("BROWSER_ENGINE", browser.Chromium)
	cfg.Headless = parseBoolOrDefault("HEADLESS", true)
	cfg.Viewport = getEnvOrDefault("VIEWPORT", defaultViewport)
	cfg.SlowMo = parseDurationOrDefault("SLOW_MO", 0)
	cfg.Install = parseBoolOrDefault("PLAYWRIGHT_INSTALL", false)
	cfg.ForwardConsole = parseBoolOrDefault("FORWARD_CONSOLE", true)

	cfg.AWSEndpointS3 = strings.TrimSpace(os.Getenv("AWS_ENDPOINT_URL_S3"))
	cfg.AWSRegion = getEnvOrDefault("AWS_REGION", defaultS3Region)
	cfg.AWSAccessKeyID = strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID"))
	cfg.AWSSecretAccessKey = strings.TrimSpace(os.Getenv("AWS_SECRET_ACCESS_KEY"))
	cfg.AWSBucketName = strings.TrimSpace(os.Getenv("BUCKET_NAME"))
	cfg.AWSPublicURL = strings.TrimSpace(os.Getenv("S3_PUBLIC_URL"))
	cfg.S3PathStyle = parseBoolOrDefault("S3_PATH_STYLE", false)
	cfg.ArtifactPrefix = getEnvOrDefault("ARTIFACT_PREFIX", defaultArtifactPrefix)

	if f.isSet("url") {
		cfg.BaseURL = f.URL
	}
	if f.isSet("checklist") {
		cfg.Checklist = f.Checklist
	}
	cfg.List = f.List
	if f.isSet("artifacts") {
		cfg.ArtifactDir = f.ArtifactDir
	}
	if f.isSet("report") {
		cfg.Report = f.Report
	}
	if f.isSet("log-format") {
		cfg.LogFormat = f.LogFormat
	}
	if f.isSet("debug") {
		cfg.Debug = f.Debug
	}
	if f.isSet("engine") {
		cfg.Engine = f.Engine
	}
	if f.isSet("headed") {
		cfg.Headless = !f.Headed
	}
	if f.isSet("viewport") {
		cfg.Viewport = f.Viewport
	}
	if f.isSet("slow-mo") {
		cfg.SlowMo = f.SlowMo
	}
	if f.isSet("install") {
		cfg.Install = f.Install
	}
	if f.isSet("console") {
		cfg.ForwardConsole = f.ForwardConsole
	}

	cfg.BaseURL = urlutil.NormalizeBaseURL(cfg.BaseURL)
	cfg.Checklist = strings.TrimSpace(cfg.Checklist)
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	cfg.Engine = strings.ToLower(strings.TrimSpace(cfg.Engine))

	if err := cfg.Validate(); err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "invalid configuration", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration is present and valid.
func (c *Config) Validate() error {
	var problems []string

	if err := urlutil.ValidateBaseURL(c.BaseURL); err != nil {
		problems = append(problems, "BASE_URL: "+err.Error())
	}
	if c.Checklist == "" {
		problems = append(problems, "UIVERIFY_CHECKLIST must not be empty")
	}
	if strings.TrimSpace(c.ArtifactDir) == "" {
		problems = append(problems, "ARTIFACT_DIR must not be empty")
	}
	if c.LogFormat != obs.FormatText && c.LogFormat != obs.FormatJSON {
		problems = append(problems, fmt.Sprintf("LOG_FORMAT must be %q or %q, got %q", obs.FormatText, obs.FormatJSON, c.LogFormat))
	}

	if _, _, err := ParseViewport(c.Viewport); err != nil {
		problems = append(problems, "VIEWPORT: "+err.Error())
	} else if err := c.BrowserOptions().Validate(); err != nil {
		problems = append(problems, errs.MessageOf(err))
	}

	// S3 mirror: credentials required once a bucket is named
	if c.S3Enabled() {
		if c.AWSAccessKeyID == "" {
			problems = append(problems, "AWS_ACCESS_KEY_ID is required when BUCKET_NAME is set")
		}
		if c.AWSSecretAccessKey == "" {
			problems = append(problems, "AWS_SECRET_ACCESS_KEY is required when BUCKET_NAME is set")
		}
		if strings.Contains(c.ArtifactPrefix, "..") {
			problems = append(problems, "ARTIFACT_PREFIX must not contain '..'")
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Errors: problems}
	}
	return nil
}

// S3Enabled reports whether artifacts are mirrored to S3.
func (c *Config) S3Enabled() bool {
	return c.AWSBucketName != ""
}

// S3Config returns the client configuration for the artifact mirror.
func (c *Config) S3Config() s3client.Config {
	return s3client.Config{
		Endpoint:        c.AWSEndpointS3,
		Region:          c.AWSRegion,
		AccessKeyID:     c.AWSAccessKeyID,
		SecretAccessKey: c.AWSSecretAccessKey,
		BucketName:      c.AWSBucketName,
		PublicURL:       c.AWSPublicURL,
		UsePathStyle:    c.S3PathStyle,
	}
}

// BrowserOptions returns the launch options. Call after Validate.
func (c *Config) BrowserOptions() browser.Options {
	w, h, _ := ParseViewport(c.Viewport)
	return browser.Options{
		Engine:         c.Engine,
		Headless:       c.Headless,
		Width:          w,
		Height:         h,
		SlowMo:         c.SlowMo,
		Install:        c.Install,
		ForwardConsole: c.ForwardConsole,
	}
}

// ParseViewport parses "WIDTHxHEIGHT", e.g. "1280x720".
func ParseViewport(s string) (width, height int, err error) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("%q is not WIDTHxHEIGHT", s)
	}
	width, err = strconv.Atoi(ws)
	if err != nil || width <= 0 {
		return 0, 0, fmt.Errorf("%q has an invalid width", s)
	}
	height, err = strconv.Atoi(hs)
	if err != nil || height <= 0 {
		return 0, 0, fmt.Errorf("%q has an invalid height", s)
	}
	return width, height, nil
}

// PrintStartupSummary prints a human-readable summary of the configuration.
func (c *Config) PrintStartupSummary(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "uiverify starting...")
	fmt.Fprintf(w, "  Target:    %s\n", c.BaseURL)
	fmt.Fprintf(w, "  Checklist: %s\n", c.Checklist)

	mode := "headless"
	if !c.Headless {
		mode = "headed"
	}
	fmt.Fprintf(w, "  Browser:   %s (%s, %s)\n", c.Engine, mode, c.Viewport)

	fmt.Fprintf(w, "  Artifacts: %s\n", c.ArtifactDir)
	if c.S3Enabled() {
		endpoint := c.AWSEndpointS3
		if endpoint == "" {
			endpoint = "AWS default"
		}
		fmt.Fprintf(w, "  Mirror:    s3://%s/%s (endpoint: %s)\n", c.AWSBucketName, c.ArtifactPrefix, endpoint)
	} else {
		fmt.Fprintln(w, "  Mirror:    off (set BUCKET_NAME to enable)")
	}
	if c.Report {
		fmt.Fprintln(w, "  Report:    on")
	}
	fmt.Fprintln(w, "")
}

// Helper functions for parsing environment variables

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
