package workers

import (
	"collab-engine/domain"
	"collab-engine/mocks"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestMetricsReporter_ReportsUntilCanceled(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	engine := mocks.NewMockIEngine(ctrl)
	engine.EXPECT().
		Metrics().
		Return(domain.Metrics{TotalSessions: 1, ActiveUsers: []string{"u1"}}).
		MinTimes(1)

	pipeline := NewPipeline(logs.GetLoggerFromLevel(slog.LevelDebug), 4, time.Millisecond)
	channels := append(pipeline.Channels(), NamedChannel{Name: "bogus", Channel: 42})
	reporter := NewMetricsReporter(logs.GetLoggerFromLevel(slog.LevelDebug), engine, channels, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	req.NoError(reporter.Run(ctx))
}
