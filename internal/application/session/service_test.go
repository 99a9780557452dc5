package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/printbridge/companion/internal/application/session"
	"github.com/printbridge/companion/internal/domain/printing"
	"github.com/printbridge/companion/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Put(ctx context.Context, job *printing.PrintJob) (*printing.PrintJob, error) {
	args := m.Called(ctx, job)
	if fn, ok := args.Get(0).(func(*printing.PrintJob) *printing.PrintJob); ok {
		return fn(job), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*printing.PrintJob), args.Error(1)
}

func (m *MockSessionRepository) Get(ctx context.Context, id string) (*printing.PrintJob, bool) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*printing.PrintJob), args.Bool(1)
}

func (m *MockSessionRepository) GetAll(ctx context.Context) map[string]*printing.PrintJob {
	args := m.Called(ctx)
	return args.Get(0).(map[string]*printing.PrintJob)
}

func (m *MockSessionRepository) Latest(ctx context.Context) (*printing.PrintJob, bool) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*printing.PrintJob), args.Bool(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(id string, job *printing.PrintJob) {
	m.Called(id, job)
}

func validRequest() session.SubmitRequest {
	return session.SubmitRequest{
		Session:    "s1",
		PreviewURL: "http://localhost:8080/preview/s1",
		PrintURL:   "http://localhost:8080/print/s1",
		PaperSize:  printing.PaperSize{Width: 100, Height: 150},
	}
}

func echoPut(repo *MockSessionRepository) {
	repo.On("Put", mock.Anything, mock.Anything).Return(func(job *printing.PrintJob) *printing.PrintJob {
		return job.Clone()
	}, nil)
}

func TestIngestService_Submit(t *testing.T) {
	t.Run("stores the job and notifies the surface", func(t *testing.T) {
		repo := new(MockSessionRepository)
		notifier := new(MockNotifier)
		repo.On("Put", mock.Anything, mock.MatchedBy(func(j *printing.PrintJob) bool {
			return j.Session == "s1" && j.PrintSelector == printing.DefaultPrintSelector
		})).Return(&printing.PrintJob{
			Session:       "s1",
			PreviewURL:    "http://localhost:8080/preview/s1",
			PaperSize:     printing.PaperSize{Name: "Custom", Width: 100, Height: 150},
			PrintSelector: printing.DefaultPrintSelector,
		}, nil)
		notifier.On("Notify", "s1", mock.AnythingOfType("*printing.PrintJob")).Return()

		svc := session.NewIngestService(repo, notifier, nil, nil)
		resp, err := svc.Submit(context.Background(), validRequest())
		require.NoError(t, err)

		assert.True(t, resp.Success)
		assert.Equal(t, "s1", resp.Session)
		assert.Equal(t, printing.PaperSize{Name: "Custom", Width: 100, Height: 150}, resp.PaperSize)
		notifier.AssertNumberOfCalls(t, "Notify", 1)
	})

	t.Run("generates a session id when none is given", func(t *testing.T) {
		repo := new(MockSessionRepository)
		echoPut(repo)

		svc := session.NewIngestService(repo, nil, nil, nil)
		req := validRequest()
		req.Session = "  "

		resp, err := svc.Submit(context.Background(), req)
		require.NoError(t, err)
		_, parseErr := uuid.Parse(resp.Session)
		assert.NoError(t, parseErr)
	})

	t.Run("missing urls are rejected before storing", func(t *testing.T) {
		repo := new(MockSessionRepository)
		notifier := new(MockNotifier)
		svc := session.NewIngestService(repo, notifier, nil, nil)

		req := validRequest()
		req.PreviewURL, req.PrintURL = "", ""

		_, err := svc.Submit(context.Background(), req)
		assert.ErrorIs(t, err, printing.ErrMissingURL)
		assert.True(t, shared.HasCode(err, printing.CodeInvalidJob))
		repo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
		notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
	})

	t.Run("invalid paper size is rejected", func(t *testing.T) {
		repo := new(MockSessionRepository)
		svc := session.NewIngestService(repo, nil, nil, nil)

		req := validRequest()
		req.PaperSize.Height = -1

		_, err := svc.Submit(context.Background(), req)
		assert.ErrorIs(t, err, printing.ErrInvalidPaperSize)
		repo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	})

	t.Run("store failure is wrapped and not notified", func(t *testing.T) {
		repo := new(MockSessionRepository)
		notifier := new(MockNotifier)
		repo.On("Put", mock.Anything, mock.Anything).Return(nil, errors.New("disk full"))

		svc := session.NewIngestService(repo, notifier, nil, nil)
		_, err := svc.Submit(context.Background(), validRequest())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to store job")
		notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
	})
}

func TestIngestService_Get(t *testing.T) {
	repo := new(MockSessionRepository)
	repo.On("Get", mock.Anything, "s1").Return(&printing.PrintJob{Session: "s1"}, true)
	repo.On("Get", mock.Anything, "nope").Return(nil, false)

	svc := session.NewIngestService(repo, nil, nil, nil)

	job, ok := svc.Get(context.Background(), "s1")
	require.True(t, ok)
	assert.Equal(t, "s1", job.Session)

	_, ok = svc.Get(context.Background(), "nope")
	assert.False(t, ok)
}
