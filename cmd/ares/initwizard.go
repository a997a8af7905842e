package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/germanamz/ares/pkg/engine"
)

// wizardAnswers are the values collected by the init wizard.
type wizardAnswers struct {
	BaseURL     string
	TokenEnv    string
	Addr        string
	UpstreamURL string
	Model       string
	APIKeyEnv   string
	LogLevel    string
}

func defaultAnswers() wizardAnswers {
	cfg := engine.DefaultConfig()
	return wizardAnswers{
		BaseURL:     cfg.Client.BaseURL,
		TokenEnv:    "ARES_TOKEN",
		Addr:        cfg.Gateway.Addr,
		UpstreamURL: cfg.Gateway.UpstreamURL,
		Model:       cfg.Gateway.Model,
		APIKeyEnv:   "LOVABLE_API_KEY",
		LogLevel:    cfg.Log.Level,
	}
}

func runInit(path string, force bool, out io.Writer) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	a := defaultAnswers()
	if err := runWizard(&a); err != nil {
		return err
	}

	if err := a.config().Save(path); err != nil {
		return err
	}

	fmt.Fprintf(out, "Wrote %s\n", path)
	return nil
}

func runWizard(a *wizardAnswers) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().Title("Chat client"),
			huh.NewInput().Title("Gateway URL").Value(&a.BaseURL).Validate(validateURL),
			huh.NewInput().Title("Gateway token env var (empty = none)").Value(&a.TokenEnv).Validate(validateEnvName),
		),
		huh.NewGroup(
			huh.NewNote().Title("Gateway"),
			huh.NewInput().Title("Listen address").Value(&a.Addr).Validate(validateRequired),
			huh.NewInput().Title("Upstream URL").Value(&a.UpstreamURL).Validate(validateURL),
			huh.NewInput().Title("Model").Value(&a.Model).Validate(validateRequired),
			huh.NewInput().Title("Upstream API key env var").Value(&a.APIKeyEnv).Validate(validateEnvName),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Log level").
				Options(
					huh.NewOption("Debug", "debug"),
					huh.NewOption("Info", "info"),
					huh.NewOption("Warn", "warn"),
					huh.NewOption("Error", "error"),
				).
				Value(&a.LogLevel),
		),
	).Run()
}

// config turns the answers into a configuration. Secrets are written as
// ${VAR} references and expanded when the file is loaded.
func (a wizardAnswers) config() engine.Config {
	cfg := engine.DefaultConfig()

	cfg.Client.BaseURL = strings.TrimRight(strings.TrimSpace(a.BaseURL), "/")
	cfg.Client.Token = envRef(a.TokenEnv)

	cfg.Gateway.Addr = strings.TrimSpace(a.Addr)
	cfg.Gateway.UpstreamURL = strings.TrimSpace(a.UpstreamURL)
	cfg.Gateway.Model = strings.TrimSpace(a.Model)
	cfg.Gateway.APIKey = envRef(a.APIKeyEnv)

	if a.LogLevel != "" {
		cfg.Log.Level = a.LogLevel
	}

	return cfg
}

func envRef(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return "${" + name + "}"
}

var envNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validateEnvName(s string) error {
	s = strings.TrimSpace(s)
	if s == "" || envNameRe.MatchString(s) {
		return nil
	}
	return fmt.Errorf("%q is not a valid environment variable name", s)
}

func validateRequired(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

func validateURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must start with http:// or https://")
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
