package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mabhi256/jdiag-bridge/internal/bridgelog"
	"github.com/mabhi256/jdiag-bridge/internal/config"
	"github.com/mabhi256/jdiag-bridge/internal/event"
	"github.com/mabhi256/jdiag-bridge/internal/jdi/fake"
	"github.com/mabhi256/jdiag-bridge/internal/rpc"
	"github.com/mabhi256/jdiag-bridge/internal/session"
	"github.com/mabhi256/jdiag-bridge/internal/tui"
)

var serveCfg = config.Default()

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the session engine against stdin/stdout",
	Long: `serve reads line-delimited JSON-RPC 2.0 requests from stdin and writes
responses and event notifications to stdout, one JSON object per line. It is
the bridge's default command: invoking the binary with no arguments runs it.

A real JDWP transport is out of scope for this binary (the session engine
consumes a capability-level façade); pass --simulate to drive the engine
against an in-memory fake VM for manual smoke-testing of the protocol.`,
	RunE: runServe,
}

var simulate bool
var showTUI bool

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.RunE = runServe

	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().IntVar(&serveCfg.MaxTokens, "max-tokens", serveCfg.MaxTokens, "Token budget for rendered values")
		c.Flags().Float64Var(&serveCfg.StepTimeoutSeconds, "step-timeout", serveCfg.StepTimeoutSeconds, "Default step wait in seconds")
		c.Flags().BoolVar(&serveCfg.Debug, "debug", serveCfg.Debug, "Enable verbose session tracing")
		c.Flags().StringVar(&serveCfg.DebugLogFile, "debug-log", serveCfg.DebugLogFile, "Tee session trace lines to this file")
		c.Flags().BoolVar(&simulate, "simulate", false, "Attach against an in-memory fake VM instead of a real target")
		c.Flags().BoolVar(&showTUI, "tui", false, "Render a live session dashboard on stderr while serving")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	sessionID := uuid.New()
	log, closeLog, err := bridgelog.New(sessionID, serveCfg.Debug, serveCfg.DebugLogFile)
	if err != nil {
		return fmt.Errorf("jdiag-bridge: %w", err)
	}
	defer closeLog()

	server := rpc.NewServer(os.Stdout, log)

	connector := fakeConnectorFor(simulate)
	notify := func(n event.Notification) { server.Notify(n.Type, n.Data) }
	sess := session.New(connector, log, notify)
	sess.Register(server)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	server.ShutdownFunc = cancel

	log.Info().Str("session_id", sessionID.String()).Str("config", serveCfg.String()).Msg("jdiag-bridge serving")

	if showTUI {
		// stdin belongs to the JSON-RPC reader; give the dashboard a reader
		// that never yields input instead of wiring it to a real terminal.
		noInput, _ := io.Pipe()
		program := tea.NewProgram(
			tui.NewModel(sess.Snapshot, time.Second),
			tea.WithOutput(os.Stderr),
			tea.WithInput(noInput),
		)
		go func() {
			if _, err := program.Run(); err != nil {
				log.Warn().Err(err).Msg("dashboard exited")
			}
		}()
		go func() {
			<-ctx.Done()
			program.Quit()
		}()
	}

	return server.Serve(ctx, os.Stdin)
}

func fakeConnectorFor(simulate bool) *fake.Connector {
	if !simulate {
		return &fake.Connector{FailErr: fmt.Errorf("no real JDWP transport is wired into this binary; pass --simulate to exercise the protocol against an in-memory VM")}
	}
	vm := fake.NewVM("simulated-target", "11.0.2")
	vm.AddThread("main", false)
	return &fake.Connector{VM: vm}
}
