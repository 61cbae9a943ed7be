package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tradecloud/bc-connector/internal/domain/integration"
)

// MockPurchaseOrderSource is a mock implementation of PurchaseOrderSource
type MockPurchaseOrderSource struct {
	mock.Mock
}

func (m *MockPurchaseOrderSource) GetOrderMetadata(ctx context.Context, resource string) (*integration.OrderMetadata, error) {
	args := m.Called(ctx, resource)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.OrderMetadata), args.Error(1)
}

func (m *MockPurchaseOrderSource) GetPurchaseOrder(ctx context.Context, documentNo string) (*integration.PurchaseOrder, error) {
	args := m.Called(ctx, documentNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderSource) GetPurchaseOrderLines(ctx context.Context, documentNo string) (*integration.PurchaseOrderLines, error) {
	args := m.Called(ctx, documentNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.PurchaseOrderLines), args.Error(1)
}

// MockOrderSubmitter is a mock implementation of OrderSubmitter
type MockOrderSubmitter struct {
	mock.Mock
}

func (m *MockOrderSubmitter) SubmitOrder(ctx context.Context, order *integration.SingleDeliveryOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

type countingForwardMetrics struct {
	outcomes []string
}

func (c *countingForwardMetrics) RecordOrderForwarded(_ context.Context, outcome string) {
	c.outcomes = append(c.outcomes, outcome)
}

const resource = "api/v2.0/companies(c0ffee)/purchaseOrders(3c1b)"

func datedLines() *integration.PurchaseOrderLines {
	return &integration.PurchaseOrderLines{Value: []integration.PurchaseOrderLine{
		testLine(10000, integration.NewDate(2024, time.March, 1), integration.Date{}),
		testLine(20000, integration.Date{}, integration.Date{}),
	}}
}

func TestOrderSyncService_ForwardsReleasedOrder(t *testing.T) {
	source := new(MockPurchaseOrderSource)
	submitter := new(MockOrderSubmitter)
	metrics := &countingForwardMetrics{}
	svc := NewOrderSyncService(source, submitter, metrics, zap.NewNop())
	ctx := context.Background()

	source.On("GetOrderMetadata", mock.Anything, resource).Return(&integration.OrderMetadata{Number: "106001", Status: "Open"}, nil)
	source.On("GetPurchaseOrder", mock.Anything, "106001").Return(testHeader(), nil)
	source.On("GetPurchaseOrderLines", mock.Anything, "106001").Return(datedLines(), nil)
	submitter.On("SubmitOrder", mock.Anything, mock.MatchedBy(func(o *integration.SingleDeliveryOrder) bool {
		return o.Order.PurchaseOrderNumber == "106001" && len(o.Lines) == 1
	})).Return(nil)

	result, err := svc.SendOrder(ctx, resource)
	require.NoError(t, err)
	assert.Equal(t, SendOutcomeForwarded, result.Outcome)
	assert.Equal(t, "106001", result.DocumentNo)
	assert.Equal(t, integration.OrderStatusReleased, result.Status)
	assert.Equal(t, 1, result.Lines)
	assert.Len(t, result.Diagnostics, 1)
	assert.Equal(t, []string{"forwarded"}, metrics.outcomes)

	source.AssertExpectations(t)
	submitter.AssertExpectations(t)
}

func TestOrderSyncService_SkipsUnreleasedOrders(t *testing.T) {
	for _, status := range []string{"Draft", "In Review"} {
		t.Run(status, func(t *testing.T) {
			source := new(MockPurchaseOrderSource)
			submitter := new(MockOrderSubmitter)
			svc := NewOrderSyncService(source, submitter, nil, nil)
			ctx := context.Background()

			source.On("GetOrderMetadata", mock.Anything, resource).Return(&integration.OrderMetadata{Number: "106001", Status: status}, nil)

			result, err := svc.SendOrder(ctx, resource)
			require.NoError(t, err)
			assert.Equal(t, SendOutcomeSkippedStatus, result.Outcome)
			source.AssertNotCalled(t, "GetPurchaseOrder", mock.Anything, mock.Anything)
			submitter.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
		})
	}
}

func TestOrderSyncService_NoAdmissibleLinesIsNotAnError(t *testing.T) {
	source := new(MockPurchaseOrderSource)
	submitter := new(MockOrderSubmitter)
	core, logs := observer.New(zap.WarnLevel)
	svc := NewOrderSyncService(source, submitter, nil, zap.New(core))
	ctx := context.Background()

	source.On("GetOrderMetadata", mock.Anything, resource).Return(&integration.OrderMetadata{Number: "106001", Status: "Open"}, nil)
	source.On("GetPurchaseOrder", mock.Anything, "106001").Return(testHeader(), nil)
	source.On("GetPurchaseOrderLines", mock.Anything, "106001").Return(&integration.PurchaseOrderLines{Value: []integration.PurchaseOrderLine{
		testLine(10000, integration.Date{}, integration.Date{}),
	}}, nil)

	result, err := svc.SendOrder(ctx, resource)
	require.NoError(t, err)
	assert.Equal(t, SendOutcomeNoLines, result.Outcome)
	submitter.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)

	assert.Equal(t, 1, logs.FilterMessage("Order line not forwarded").Len())
	assert.Equal(t, 1, logs.FilterMessage("Order has no admissible lines, nothing to send").Len())
}

func TestOrderSyncService_Failures(t *testing.T) {
	ctx := context.Background()
	errRemote := errors.New("boom")

	t.Run("metadata", func(t *testing.T) {
		source := new(MockPurchaseOrderSource)
		svc := NewOrderSyncService(source, new(MockOrderSubmitter), nil, nil)
		source.On("GetOrderMetadata", mock.Anything, resource).Return(nil, errRemote)

		result, err := svc.SendOrder(ctx, resource)
		assert.ErrorIs(t, err, integration.ErrOrderSnapshotFailed)
		assert.ErrorIs(t, err, errRemote)
		assert.Equal(t, SendOutcomeFailed, result.Outcome)
	})

	t.Run("lines", func(t *testing.T) {
		source := new(MockPurchaseOrderSource)
		svc := NewOrderSyncService(source, new(MockOrderSubmitter), nil, nil)
		source.On("GetOrderMetadata", mock.Anything, resource).Return(&integration.OrderMetadata{Number: "106001", Status: "Open"}, nil)
		source.On("GetPurchaseOrder", mock.Anything, "106001").Return(testHeader(), nil)
		source.On("GetPurchaseOrderLines", mock.Anything, "106001").Return(nil, errRemote)

		_, err := svc.SendOrder(ctx, resource)
		assert.ErrorIs(t, err, integration.ErrOrderSnapshotFailed)
	})

	t.Run("submit", func(t *testing.T) {
		source := new(MockPurchaseOrderSource)
		submitter := new(MockOrderSubmitter)
		svc := NewOrderSyncService(source, submitter, nil, nil)
		source.On("GetOrderMetadata", mock.Anything, resource).Return(&integration.OrderMetadata{Number: "106001", Status: "Open"}, nil)
		source.On("GetPurchaseOrder", mock.Anything, "106001").Return(testHeader(), nil)
		source.On("GetPurchaseOrderLines", mock.Anything, "106001").Return(datedLines(), nil)
		submitter.On("SubmitOrder", mock.Anything, mock.Anything).Return(integration.ErrOrderSubmitFailed)

		result, err := svc.SendOrder(ctx, resource)
		assert.ErrorIs(t, err, integration.ErrOrderSubmitFailed)
		assert.Equal(t, SendOutcomeFailed, result.Outcome)
	})

	t.Run("empty resource", func(t *testing.T) {
		svc := NewOrderSyncService(new(MockPurchaseOrderSource), new(MockOrderSubmitter), nil, nil)
		_, err := svc.SendOrder(ctx, "")
		assert.ErrorIs(t, err, integration.ErrMissingResource)
	})
}

func TestOrderSyncService_CallerCancellationDoesNotAbortForwarding(t *testing.T) {
	source := new(MockPurchaseOrderSource)
	submitter := new(MockOrderSubmitter)
	svc := NewOrderSyncService(source, submitter, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	live := mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil })
	source.On("GetOrderMetadata", live, resource).
		Run(func(mock.Arguments) { cancel() }).
		Return(&integration.OrderMetadata{Number: "106001", Status: "Open"}, nil)
	source.On("GetPurchaseOrder", live, "106001").Return(testHeader(), nil)
	source.On("GetPurchaseOrderLines", live, "106001").Return(datedLines(), nil)
	submitter.On("SubmitOrder", live, mock.Anything).Return(nil)

	result, err := svc.SendOrder(ctx, resource)
	require.NoError(t, err)
	require.Error(t, ctx.Err())
	assert.Equal(t, SendOutcomeForwarded, result.Outcome)
	source.AssertExpectations(t)
	submitter.AssertExpectations(t)
}
