// Command ircmesh boots one node of the replicated IRC network: the event
// log, network reducer, history log, dispatcher and connection registry
// from pkg/ircmesh/engine, plus the gRPC peer transport and a Prometheus
// /metrics endpoint. It does not itself terminate client connections — per
// the Non-goals, the TLS-terminating listener is an external
// collaborator that talks to this process's command/registry surface.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"

	"github.com/ircmesh/ircd/pkg/ircmesh/definition"
	"github.com/ircmesh/ircd/pkg/ircmesh/engine"
	"github.com/ircmesh/ircd/pkg/ircmesh/ids"
	"github.com/ircmesh/ircd/pkg/ircmesh/peer"
)

var zlog = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

func main() {
	if err := newRootCmd().Execute(); err != nil {
		zlog.Error().Err(err).Msg("ircmesh exited with error")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use: "ircmesh",
		Short: "Replicated IRC network state engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), v)
		},
	}

	flags := root.Flags()
	flags.String("server-name", "irc.local", "this node's server name")
	flags.Uint32("server-id", 1, "this node's unique ServerId within the cluster")
	flags.String("listen-address", "127.0.0.1:7300", "peer-transport listen address (gRPC)")
	flags.StringSlice("peers", nil, "addresses of other cluster members' peer-transport listeners")
	flags.Int("history-capacity", definition.DefaultHistoryCapacity, "history log ring buffer capacity")
	flags.Duration("peer-ping-timeout", definition.DefaultPeerPingTimeout, "silence duration before synthesizing a peer ServerQuit")
	flags.String("metrics-listen-address", "127.0.0.1:9300", "Prometheus /metrics listen address, empty to disable")
	flags.String("config", "", "path to a config file (yaml/json/toml, per viper)")

	v.BindPFlags(flags)
	v.SetEnvPrefix("IRCMESH")
	v.AutomaticEnv()

	cobra.OnInitialize(func() {
		if path := v.GetString("config"); path != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				zlog.Warn().Err(err).Str("path", path).Msg("failed reading config file, continuing with flags/env only")
			}
		}
	})

	return root
}

func runServe(ctx context.Context, v *viper.Viper) error {
	cfg := definition.Configuration{
		ServerName: v.GetString("server-name"),
		ListenAddress: v.GetString("listen-address"),
		HistoryCapacity: v.GetInt("history-capacity"),
		PeerPingTimeout: v.GetDuration("peer-ping-timeout"),
		MetricsListenAddress: v.GetString("metrics-listen-address"),
	}
	for _, p := range v.GetStringSlice("peers") {
		cfg.Peers = append(cfg.Peers, definition.PeerAddress(p))
	}
	cfg = cfg.WithDefaults()

	server := ids.ServerId(v.GetUint32("server-id"))
	epoch := ids.EpochId(time.Now().UnixNano())

	zlog.Info().
		Str("server_name", cfg.ServerName).
		Uint32("server_id", uint32(server)).
		Uint64("epoch", uint64(epoch)).
		Str("listen_address", cfg.ListenAddress).
		Strs("peers", stringifyPeers(cfg.Peers)).
		Msg("starting ircmesh node")

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := definition.NewDefaultLogger().WithField("server", server.String())
	metrics := definition.NewMetrics(prometheus.DefaultRegisterer)

	node := engine.New(ctx, cfg, server, epoch, logger, metrics)

	peerManager := peer.NewManager(node.Log, server, epoch, cfg.PeerPingTimeout, logger)
	node.SetPeers(peerManager)

	grpcServer := grpc.NewServer()
	peer.RegisterPeerServer(grpcServer, peerManager)

	lis, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("ircmesh: listen %s: %w", cfg.ListenAddress, err)
	}
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			zlog.Error().Err(err).Msg("peer gRPC server stopped")
		}
	}()

	for i, addr := range cfg.Peers {
		peerServerID := ids.ServerId(uint32(i) + 2)
		go peerManager.Dial(ctx, string(addr), peerServerID)
	}

	if cfg.MetricsListenAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer := &http.Server{Addr: cfg.MetricsListenAddress, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				zlog.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		defer metricsServer.Close()
	}

	go node.Dispatch.Run(ctx.Done())
	go node.Run(ctx)

	<-ctx.Done()
	zlog.Info().Msg("shutting down ircmesh node")
	grpcServer.GracefulStop()
	node.Log.Shutdown(context.Canceled)
	return nil
}

func stringifyPeers(peers []definition.PeerAddress) []string {
	out := make([]string, len(peers))
	for i, p := range peers {
		out[i] = string(p)
	}
	return out
}
