package jsonrag

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/mwiater/jsonrag/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd exposes the session over HTTP until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the fetch and ask actions over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		ctrl, err := newSession(cfg)
		if err != nil {
			return reportFailure(cmd.ErrOrStderr(), err)
		}
		if !cfg.Debug {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(ctrl, server.Config{
			Addr:           cfg.Server.Addr,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Version:        appVersion,
		})
		cmd.Printf("Listening on %s\n", cfg.Server.Addr)
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	rootCmd.AddCommand(serveCmd)
}
