// Package web is the HTTP control plane: health, manual cycle triggering,
// read-only analytics over the persisted records, and Prometheus metrics.
package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kazusol/soltrader/internal/entity"
)

// CycleTrigger starts one decision cycle.
type CycleTrigger interface {
	TriggerCycle(ctx context.Context) error
	Busy() bool
}

// ProfitReader serves persisted profit records.
type ProfitReader interface {
	Since(ctx context.Context, cutoff time.Time) ([]entity.ProfitRecord, error)
	Latest(ctx context.Context) (*entity.ProfitRecord, error)
}

// PriceReader serves persisted price samples.
type PriceReader interface {
	Window(ctx context.Context, cutoff time.Time) ([]entity.PriceSample, error)
}

// TradeReader serves persisted trade records.
type TradeReader interface {
	Recent(ctx context.Context, limit int) ([]entity.TradeRecord, error)
}

// Server exposes the control plane.
type Server struct {
	engine  *gin.Engine
	trigger CycleTrigger
	profits ProfitReader
	prices  PriceReader
	trades  TradeReader
	logger  *zap.Logger
}

// New builds the router. metricsHandler serves GET /metrics.
func New(trigger CycleTrigger, profits ProfitReader, prices PriceReader, trades TradeReader, metricsHandler http.Handler, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:  engine,
		trigger: trigger,
		profits: profits,
		prices:  prices,
		trades:  trades,
		logger:  logger,
	}

	engine.GET("/", s.health)
	engine.GET("/health", s.health)
	engine.GET("/trigger", s.triggerCycle)
	engine.POST("/trigger", s.triggerCycle)
	engine.GET("/metrics", gin.WrapH(metricsHandler))

	api := engine.Group("/api")
	api.GET("/performance", s.performance)
	api.GET("/price-history", s.priceHistory)
	api.GET("/trading-sessions", s.tradingSessions)

	return s
}

// Handler returns the underlying http.Handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves HTTP on addr until ctx ends.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("control plane listening", zap.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// triggerCycle starts a cycle in the background. A cycle already in flight is
// a conflict, not a queue. The busy check here is advisory; the engine's own
// single-flight guard is authoritative.
func (s *Server) triggerCycle(c *gin.Context) {
	if s.trigger.Busy() {
		c.JSON(http.StatusConflict, gin.H{"error": entity.ErrCycleInProgress.Error()})
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.trigger.TriggerCycle(ctx); err != nil && !errors.Is(err, entity.ErrCycleInProgress) {
			s.logger.Error("manually triggered cycle failed", zap.Error(err))
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "cycle started"})
}

type performanceResponse struct {
	Days             int             `json:"days"`
	Trades           int             `json:"trades"`
	WinningTrades    int64           `json:"winning_trades"`
	LosingTrades     int64           `json:"losing_trades"`
	WinRatePercent   decimal.Decimal `json:"win_rate_percent"`
	PeriodProfit     decimal.Decimal `json:"period_profit"`
	CumulativeProfit decimal.Decimal `json:"cumulative_profit"`
	ROIPercent       decimal.Decimal `json:"roi_percent"`
}

func (s *Server) performance(c *gin.Context) {
	days := intQuery(c, "days", 7)
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	records, err := s.profits.Since(c.Request.Context(), cutoff)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := performanceResponse{
		Days:           days,
		Trades:         len(records),
		WinRatePercent: decimal.Zero,
		PeriodProfit:   decimal.Zero,
	}
	var wins, losses int64
	for _, rec := range records {
		resp.PeriodProfit = resp.PeriodProfit.Add(rec.ProfitLoss)
		if rec.ProfitLoss.IsPositive() {
			wins++
		} else if rec.ProfitLoss.IsNegative() {
			losses++
		}
	}
	resp.WinningTrades = wins
	resp.LosingTrades = losses
	if decided := wins + losses; decided > 0 {
		resp.WinRatePercent = decimal.NewFromInt(wins).
			Div(decimal.NewFromInt(decided)).
			Mul(decimal.NewFromInt(100))
	}

	if latest, err := s.profits.Latest(c.Request.Context()); err == nil && latest != nil {
		resp.CumulativeProfit = latest.CumulativeProfit
		resp.ROIPercent = latest.ROIPercent
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) priceHistory(c *gin.Context) {
	hours := intQuery(c, "hours", 24)
	cutoff := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

	samples, err := s.prices.Window(c.Request.Context(), cutoff)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if samples == nil {
		samples = []entity.PriceSample{}
	}

	c.JSON(http.StatusOK, gin.H{"hours": hours, "prices": samples})
}

func (s *Server) tradingSessions(c *gin.Context) {
	limit := intQuery(c, "limit", 20)

	trades, err := s.trades.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if trades == nil {
		trades = []entity.TradeRecord{}
	}

	c.JSON(http.StatusOK, gin.H{"limit": limit, "trades": trades})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
