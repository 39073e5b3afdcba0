package usecase_test

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
	"github.com/xavierca1/ligue-pipeline/internal/infra/logger"
	"github.com/xavierca1/ligue-pipeline/internal/usecase"
)

// MockLeadRepository
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockLeadRepository) ListGroupedByStage(ctx context.Context) (entity.LeadsByStage, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(entity.LeadsByStage), args.Error(1)
}

func (m *MockLeadRepository) ListAll(ctx context.Context, stages ...entity.Stage) ([]entity.Lead, error) {
	args := m.Called(ctx, stages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) UpdateStage(ctx context.Context, leadID string, stage entity.Stage) (*entity.Lead, error) {
	args := m.Called(ctx, leadID, stage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) Delete(ctx context.Context, leadID string) error {
	args := m.Called(ctx, leadID)
	return args.Error(0)
}

// MockSimulationRepository
type MockSimulationRepository struct {
	mock.Mock
}

func (m *MockSimulationRepository) ListByPatientID(ctx context.Context, patientID string) ([]entity.Simulation, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Simulation), args.Error(1)
}

// MockNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n usecase.Notification) {
	m.Called(ctx, n)
}

func (m *MockNotifier) Levels() []usecase.NotificationLevel {
	var out []usecase.NotificationLevel
	for _, c := range m.Calls {
		out = append(out, c.Arguments.Get(1).(usecase.Notification).Level)
	}
	return out
}

func newMockNotifier() *MockNotifier {
	n := new(MockNotifier)
	n.On("Notify", mock.Anything, mock.Anything).Return()
	return n
}

// MockEventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishPipelineEvent(ctx context.Context, event entity.PipelineEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockReloader
type MockReloader struct {
	mock.Mock
}

func (m *MockReloader) Reload(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// ============ HELPERS ============

func money(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func price(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func newBoard(leadRepo *MockLeadRepository, simRepo *MockSimulationRepository, view usecase.View, notifier usecase.Notifier) *usecase.PipelineBoard {
	resolver := usecase.NewResolver(simRepo, 1, logger.Nop(), nil)
	return usecase.NewPipelineBoard(leadRepo, resolver, view, notifier, nil, logger.Nop())
}

func cardIDs(cards []entity.Card) []string {
	ids := make([]string, 0, len(cards))
	for _, c := range cards {
		ids = append(ids, c.ID)
	}
	return ids
}
