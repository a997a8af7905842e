package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/germanamz/ares/pkg/engine"
	"github.com/germanamz/ares/pkg/logging"
)

const defaultConfigPath = "ares.yaml"

func main() {
	cmd := "chat"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "chat":
		err = chatCmd(args)
	case "ask":
		err = askCmd(args)
	case "serve":
		err = serveCmd(args)
	case "init":
		err = initCmd(args)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: ares [flags]\n       ares <command> [flags]\n\n"+
		"Commands:\n"+
		"  chat    Interactive chat (default)\n"+
		"  ask     Stream one reply to stdout\n"+
		"  serve   Run the gateway proxy\n"+
		"  init    Write a config file interactively\n\n"+
		"Run 'ares <command> -h' for command flags.\n")
}

// commonFlags registers the flags every command shares.
type commonFlags struct {
	config *string
	env    *string
}

func newFlagSet(name, synopsis string) (*flag.FlagSet, commonFlags) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s\n\nFlags:\n", synopsis)
		fs.PrintDefaults()
	}
	return fs, commonFlags{
		config: fs.String("config", defaultConfigPath, "path to configuration file"),
		env:    fs.String("env", ".env", "path to .env file (ignored if missing)"),
	}
}

// load reads the .env file, then the config.
func (f commonFlags) load() (engine.Config, error) {
	if err := loadDotEnv(*f.env); err != nil {
		return engine.Config{}, err
	}

	cfg, err := engine.LoadConfig(*f.config)
	if err != nil {
		return engine.Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return engine.Config{}, err
	}

	return cfg, nil
}

func chatCmd(args []string) error {
	fs, common := newFlagSet("chat", "ares [chat] [flags]")
	_ = fs.Parse(args)

	cfg, err := common.load()
	if err != nil {
		return err
	}

	return runChat(cfg)
}

func runChat(cfg engine.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Logs go to the file only so the screen stays clean.
	log, closer, err := logging.Init(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	eng, err := engine.New(cfg, engine.WithLogger(log))
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	sess := eng.NewSession()
	log.Info("chat started", "session", sess.ID(), "gateway", cfg.Client.BaseURL)

	model := newAppModel(ctx, eng, sess)

	p := tea.NewProgram(model, tea.WithContext(ctx))
	b := startBridge(ctx, p, sess.ID(), sess.Events())

	_, err = p.Run()

	// Run cancels the program context on return, which releases a p.Send
	// the bridge may still be blocked in.
	b.stop()
	b.wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// multiFlag collects a repeated string flag.
type multiFlag []string

func (f *multiFlag) String() string { return strings.Join(*f, ",") }

func (f *multiFlag) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func askCmd(args []string) error {
	fs, common := newFlagSet("ask", "ares ask [flags] <prompt>")
	var attach multiFlag
	fs.Var(&attach, "attach", "file to attach (repeatable)")
	_ = fs.Parse(args)

	prompt := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(prompt) == "" && len(attach) == 0 {
		fs.Usage()
		return fmt.Errorf("ask: a prompt is required")
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log, closer, err := logging.Init(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	eng, err := engine.New(cfg, engine.WithLogger(log))
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	return runAsk(ctx, eng, prompt, attach, os.Stdout)
}

func serveCmd(args []string) error {
	fs, common := newFlagSet("serve", "ares serve [flags]")
	addr := fs.String("addr", "", "listen address (overrides gateway.addr)")
	_ = fs.Parse(args)

	cfg, err := common.load()
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Gateway.Addr = *addr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return runServe(ctx, cfg, os.Stderr)
}

func initCmd(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ares init [flags]\n\nWrite a config file interactively.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	path := fs.String("config", defaultConfigPath, "path of the config file to write")
	force := fs.Bool("force", false, "overwrite an existing config file")
	_ = fs.Parse(args)

	return runInit(*path, *force, os.Stdout)
}
