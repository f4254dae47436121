package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/shiftledger/internal/config"
	"github.com/smallbiznis/shiftledger/internal/ledger"
	"github.com/smallbiznis/shiftledger/internal/ledger/aggregate"
	ledgerdomain "github.com/smallbiznis/shiftledger/internal/ledger/domain"
	"github.com/smallbiznis/shiftledger/internal/motivation"
	"github.com/smallbiznis/shiftledger/internal/observability"
	obsmiddleware "github.com/smallbiznis/shiftledger/internal/observability/logger"
	obstracing "github.com/smallbiznis/shiftledger/internal/observability/tracing"
	"github.com/smallbiznis/shiftledger/internal/payoutroll"
	"github.com/smallbiznis/shiftledger/internal/sellerstate"
	"github.com/smallbiznis/shiftledger/internal/settings"
	"github.com/smallbiznis/shiftledger/internal/shiftclose"
	shiftclosedomain "github.com/smallbiznis/shiftledger/internal/shiftclose/domain"
	shiftcloseservice "github.com/smallbiznis/shiftledger/internal/shiftclose/service"
	"github.com/smallbiznis/shiftledger/internal/staff"
	staffdomain "github.com/smallbiznis/shiftledger/internal/staff/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Domains wires every service the HTTP API and the CLI share.
var Domains = fx.Options(
	staff.Module,
	ledger.Module,
	settings.Module,
	sellerstate.Module,
	motivation.Module,
	payoutroll.Module,
	shiftclose.Module,
)

var Module = fx.Module("http.server",
	Domains,
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(run),
)

type AggregateReader interface {
	GetDayAggregate(ctx context.Context, rawDay string, sellerID *snowflake.ID) (*aggregate.DayAggregate, error)
}

type MotivationReader interface {
	ComputeDay(ctx context.Context, rawDay string) (*motivation.Result, error)
}

type ShiftCloser interface {
	CloseShift(ctx context.Context, req shiftclosedomain.CloseShiftRequest) (*shiftclosedomain.Snapshot, error)
	GetSnapshot(ctx context.Context, rawDay string) (*shiftclosedomain.Snapshot, error)
	ListSnapshots(ctx context.Context, rawFrom, rawTo string) ([]shiftclosedomain.Snapshot, error)
	DaySummary(ctx context.Context, rawDay string) (*shiftcloseservice.DaySummary, error)
}

type PayoutReader interface {
	WeeklySummary(ctx context.Context, weekID string) (*payoutroll.WeeklySummary, error)
	SeasonSummary(ctx context.Context, seasonID string) (*payoutroll.SeasonSummary, error)
}

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(Operator())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Params struct {
	fx.In

	Engine     *gin.Engine
	Log        *zap.Logger
	LedgerSvc  ledgerdomain.Service
	StaffSvc   staffdomain.Service
	Aggregates *aggregate.Service
	Motivation *motivation.Service
	ShiftClose *shiftcloseservice.Service
	PayoutRoll *payoutroll.Service
}

type Server struct {
	engine     *gin.Engine
	log        *zap.Logger
	ledgerSvc  ledgerdomain.Service
	staffSvc   staffdomain.Service
	aggregates AggregateReader
	motivation MotivationReader
	shiftClose ShiftCloser
	payoutRoll PayoutReader
}

func NewServer(p Params) *Server {
	return &Server{
		engine:     p.Engine,
		log:        p.Log.Named("http"),
		ledgerSvc:  p.LedgerSvc,
		staffSvc:   p.StaffSvc,
		aggregates: p.Aggregates,
		motivation: p.Motivation,
		shiftClose: p.ShiftClose,
		payoutRoll: p.PayoutRoll,
	}
}

func (s *Server) RegisterRoutes() {
	api := s.engine.Group("/api")

	days := api.Group("/days/:day")
	days.GET("/aggregate", s.GetDayAggregate)
	days.GET("/summary", s.GetDaySummary)
	days.GET("/motivation", s.GetDayMotivation)
	days.POST("/close", s.CloseShift)
	days.GET("/snapshot", s.GetSnapshot)

	api.GET("/snapshots", s.ListSnapshots)

	api.POST("/ledger/entries", s.PostEntry)
	api.POST("/presales", s.RecordPresale)
	api.POST("/slots/:id/complete", s.CompleteSlot)

	api.GET("/weeks/:week", s.GetWeeklySummary)
	api.GET("/seasons/:season", s.GetSeasonSummary)

	api.POST("/staff", s.CreateStaff)
	api.GET("/staff/:id", s.GetStaff)
	api.PUT("/staff/:id/zone", s.MoveStaffZone)
}
