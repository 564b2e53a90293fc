package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messaging-service/internal/config"
	"messaging-service/internal/grpcserver"
	"messaging-service/internal/handlers"
	"messaging-service/internal/messaging"
	"messaging-service/internal/middleware"
	"messaging-service/internal/observability"
	"messaging-service/internal/ownership"
	"messaging-service/internal/rabbitmq"
	"messaging-service/internal/telemetry"
	"messaging-service/internal/tracing"
)

const auditRoutingKey = "audit.messaging"

func ServeCmd(v *viper.Viper, load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the gRPC health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().String("port", "", "HTTP port")
	cmd.Flags().String("grpc-port", "", "gRPC health port")
	bindFlag(v, cmd, "PORT", "port")
	bindFlag(v, cmd, "GRPC_PORT", "grpc-port")
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	shutdownTracing, err := tracing.Setup(ctx, cfg.ServiceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Printf("tracing shutdown failed: %v", err)
		}
	}()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.StoreDriver, err)
	}
	defer st.close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s reason=%q", rabbitmq.PublisherMode(publisher), rabbitmq.PublisherNoopReason(publisher))
	audit := telemetry.NewAuditEmitter(publisher, auditRoutingKey, cfg.ServiceName, cfg.Environment)

	if cfg.OwnershipAllowAnonymous {
		log.Printf("ownership degraded mode enabled: requests without a principal may edit and delete")
	}
	service := messaging.NewService(st.messages, st.participants, ownership.Validator{AllowAnonymous: cfg.OwnershipAllowAnonymous}, publisher)

	router := newRouter(cfg, service, audit, publisher, st.ping)

	grpcLis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	grpcSrv := grpcserver.New(st.ping)
	go grpcSrv.Watch(ctx, 15*time.Second)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() { errCh <- grpcSrv.Serve(grpcLis) }()
	go func() {
		log.Printf("http server listening addr=%s store=%s", httpSrv.Addr, cfg.StoreDriver)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		log.Printf("shutting down")
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := httpSrv.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Printf("http shutdown failed: %v", shutdownErr)
	}
	grpcSrv.Stop()
	return err
}

func newRouter(cfg config.Config, service handlers.MessageService, audit *telemetry.AuditEmitter, events handlers.EventPublisher, ping func(context.Context) error) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Logger(),
		gin.Recovery(),
		otelgin.Middleware(cfg.ServiceName),
		middleware.RequestID(),
		observability.HTTPMetricsMiddleware(),
	)

	router.GET("/metrics", gin.WrapH(observability.MetricsHandler()))
	router.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/messages", middleware.AuthMiddleware([]byte(cfg.JWTSecret)))
	handlers.NewMessageHandler(service, audit).Register(api)
	handlers.RegisterDebugRoutes(router, audit, events, cfg.DebugRoutes)
	return router
}
