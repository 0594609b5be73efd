package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-kratos/kratos/v2"
	"github.com/spf13/cobra"

	"github.com/iWorld-y/post_radar/internal/server"
	"github.com/iWorld-y/post_radar/pkg/config"
	"github.com/iWorld-y/post_radar/pkg/logger"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	Name    = "post_radar"
	Version string

	configPath string
	maxResults int
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "post_radar",
	Short:         "Research a topic on the web and turn it into a LinkedIn post",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if err := logger.InitLogger(c.Log.Level, c.Log.File); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		if maxResults <= 0 {
			maxResults = c.Research.MaxResults
		}
		cfg = c
		return nil
	},
}

var researchCmd = &cobra.Command{
	Use:   "research <topic>",
	Short: "Research a topic and print the report as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		deps, err := build(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer deps.Close()

		topic := strings.Join(args, " ")
		out := deps.Researcher.Research(ctx, topic, maxResults)
		if deps.Store != nil {
			if id, err := deps.Store.SaveRun(ctx, out); err != nil {
				logger.Log.Errorf("保存调研记录失败: %v", err)
			} else {
				logger.Log.Infof("调研记录已保存: %s", id)
			}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

var postCmd = &cobra.Command{
	Use:   "post <prompt>",
	Short: "Generate a LinkedIn post and publish it to the configured sink",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireLLM(); err != nil {
			return err
		}
		ctx := cmd.Context()
		deps, err := build(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer deps.Close()

		prompt := strings.Join(args, " ")
		fmt.Fprintf(cmd.ErrOrStderr(), "🚀 Generating LinkedIn post with prompt:\n'%s'\n", prompt)

		post, err := deps.Writer.Run(ctx, prompt, maxResults)
		if err != nil {
			return err
		}
		loc, err := deps.Sink.Publish(ctx, post)
		if err != nil {
			return err
		}
		post.Location = loc

		fmt.Fprintln(cmd.OutOrStdout(), post.Final)
		if post.Degraded {
			fmt.Fprintln(cmd.ErrOrStderr(), "⚠️  Live search was unavailable, the post is based on general insights.")
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✅ Post saved to %s\n", loc)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		withWriter := cfg.RequireLLM() == nil
		if !withWriter {
			logger.Log.Warnf("未配置 LLM，/api/post 不可用")
		}
		deps, err := build(ctx, cfg, withWriter)
		if err != nil {
			return err
		}
		defer deps.Close()

		opts := []server.Option{server.WithMaxResults(maxResults)}
		if deps.Writer != nil {
			opts = append(opts, server.WithWriter(deps.Writer), server.WithSink(deps.Sink))
		}
		if deps.Store != nil {
			opts = append(opts, server.WithStore(deps.Store))
		}

		klog := logger.NewKratosLogger()
		srv := server.NewHTTPServer(cfg.Server, server.NewService(deps.Researcher, klog, opts...))
		app := kratos.New(
			kratos.Name(Name),
			kratos.Version(Version),
			kratos.Context(ctx),
			kratos.Logger(klog),
			kratos.Server(srv),
		)
		logger.Log.Infof("HTTP 服务启动: %s", cfg.Server.Addr)
		return app.Run()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "config path")
	rootCmd.PersistentFlags().IntVar(&maxResults, "max-results", 0, "web results kept in the report (default research.max_results)")
	rootCmd.AddCommand(researchCmd, postCmd, serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
