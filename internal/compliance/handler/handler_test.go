package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"shelfaudit/internal/compliance/batch"
	"shelfaudit/internal/compliance/handler/mocks"
	"shelfaudit/internal/compliance/models"
	"shelfaudit/internal/compliance/ports"
	dErrors "shelfaudit/pkg/domain-errors"
	audit "shelfaudit/pkg/platform/audit"
	"shelfaudit/pkg/platform/middleware/requestid"
	"shelfaudit/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/service-mocks.go -package=mocks Service
type ComplianceHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  http.Handler
}

func TestComplianceHandlerSuite(t *testing.T) {
	suite.Run(t, new(ComplianceHandlerSuite))
}

func (s *ComplianceHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	New(s.service, logger, nil).Register(r)
	s.router = r
}

func (s *ComplianceHandlerSuite) do(method, path string) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, testutil.NewRequest(s.T(), method, path))
}

func (s *ComplianceHandlerSuite) TestEvaluate() {
	s.Run("returns the run summary", func() {
		s.service.EXPECT().EvaluatePeriod(gomock.Any(), models.Period(202401)).Return(&batch.Summary{
			RunID:     "run-1",
			Period:    202401,
			Customers: 3,
			Passed:    2,
			Failed:    1,
		}, nil)

		rr := s.do(http.MethodPost, "/v1/periods/202401/evaluations")

		testutil.AssertStatusOK(s.T(), rr)
		summary := testutil.UnmarshalResponse[batch.Summary](s.T(), rr)
		s.Equal("run-1", summary.RunID)
		s.Equal(3, summary.Customers)
		s.NotEmpty(rr.Header().Get(requestid.Header))
	})

	s.Run("rejects a malformed period before calling the service", func() {
		rr := s.do(http.MethodPost, "/v1/periods/2024-1/evaluations")
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})

	s.Run("rejects month 13", func() {
		rr := s.do(http.MethodPost, "/v1/periods/202413/evaluations")
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})

	s.Run("maps a concurrent run to conflict", func() {
		s.service.EXPECT().EvaluatePeriod(gomock.Any(), models.Period(202402)).
			Return(nil, dErrors.New(dErrors.CodeConflict, "period is already being evaluated"))

		rr := s.do(http.MethodPost, "/v1/periods/202402/evaluations")
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	})

	s.Run("maps invalid rule configuration to bad request", func() {
		s.service.EXPECT().EvaluatePeriod(gomock.Any(), models.Period(202403)).
			Return(nil, dErrors.New(dErrors.CodeInvalidInput, "invalid rule configuration"))

		rr := s.do(http.MethodPost, "/v1/periods/202403/evaluations")
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})

	s.Run("hides the infrastructure cause of an outage", func() {
		s.service.EXPECT().EvaluatePeriod(gomock.Any(), models.Period(202404)).
			Return(nil, dErrors.Wrap(errors.New("dial tcp: refused"), dErrors.CodeUnavailable, "failed to load period"))

		rr := s.do(http.MethodPost, "/v1/periods/202404/evaluations")
		testutil.AssertStatus(s.T(), rr, http.StatusServiceUnavailable)
		body := testutil.UnmarshalErrorResponse(s.T(), rr)
		s.Equal("failed to load period", body["error_description"])
	})

	s.Run("writes nothing when the client canceled", func() {
		s.service.EXPECT().EvaluatePeriod(gomock.Any(), models.Period(202405)).Return(nil, context.Canceled)

		rr := s.do(http.MethodPost, "/v1/periods/202405/evaluations")
		s.Empty(rr.Body.Bytes())
	})
}

func (s *ComplianceHandlerSuite) TestCustomerResult() {
	s.Run("returns all three tiers", func() {
		s.service.EXPECT().CustomerResult(gomock.Any(), models.Period(202401), "C1").Return(&models.CustomerResult{
			Customer: models.CustomerVerdict{CustomerID: "C1", Status: models.StatusPass, Reason: models.ReasonCompliant},
			Groups:   []models.GroupVerdict{{CustomerID: "C1", GroupID: "GROUP_A", Status: models.StatusPass}},
			Programs: []models.ProgramVerdict{{CustomerID: "C1", GroupID: "GROUP_A", ProgramCode: "P1", Status: models.StatusPass}},
		}, nil)

		rr := s.do(http.MethodGet, "/v1/periods/202401/customers/C1")

		testutil.AssertStatusOK(s.T(), rr)
		res := testutil.UnmarshalResponse[models.CustomerResult](s.T(), rr)
		s.Equal("C1", res.Customer.CustomerID)
		s.Len(res.Groups, 1)
		s.Len(res.Programs, 1)
	})

	s.Run("unknown customer is not found", func() {
		s.service.EXPECT().CustomerResult(gomock.Any(), models.Period(202401), "nobody").
			Return(nil, dErrors.New(dErrors.CodeNotFound, "no result"))

		rr := s.do(http.MethodGet, "/v1/periods/202401/customers/nobody")
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})
}

func (s *ComplianceHandlerSuite) TestProgress() {
	s.Run("returns the last report", func() {
		s.service.EXPECT().Progress(gomock.Any(), models.Period(202401)).Return(&ports.Progress{
			RunID:     "run-1",
			Period:    202401,
			Processed: 40,
			Total:     100,
		}, nil)

		rr := s.do(http.MethodGet, "/v1/periods/202401/progress")

		testutil.AssertStatusOK(s.T(), rr)
		p := testutil.UnmarshalResponse[ports.Progress](s.T(), rr)
		s.Equal(40, p.Processed)
		s.False(p.Done)
	})

	s.Run("untracked deployments report unavailable", func() {
		s.service.EXPECT().Progress(gomock.Any(), models.Period(202401)).
			Return(nil, dErrors.New(dErrors.CodeUnavailable, "progress tracking is not configured"))

		rr := s.do(http.MethodGet, "/v1/periods/202401/progress")
		testutil.AssertStatusAndError(s.T(), rr, http.StatusServiceUnavailable, "unavailable")
	})
}

func (s *ComplianceHandlerSuite) TestRuns() {
	s.Run("lists the audit trail", func() {
		s.service.EXPECT().Runs(gomock.Any(), models.Period(202401), 5).Return([]audit.Event{
			{RunID: "run-1", Period: "202401", Action: audit.ActionRunCompleted, Customers: 3},
			{RunID: "run-1", Period: "202401", Action: audit.ActionRunStarted},
		}, nil)

		rr := s.do(http.MethodGet, "/v1/periods/202401/runs?limit=5")

		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[runsResponse](s.T(), rr)
		s.Equal("202401", resp.Period)
		s.Require().Len(resp.Runs, 2)
		s.Equal(audit.ActionRunCompleted, resp.Runs[0].Action)
	})

	s.Run("defaults the limit", func() {
		s.service.EXPECT().Runs(gomock.Any(), models.Period(202401), 0).Return([]audit.Event{}, nil)
		rr := s.do(http.MethodGet, "/v1/periods/202401/runs")
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("rejects a bad limit", func() {
		for _, q := range []string{"abc", "0", "-3"} {
			rr := s.do(http.MethodGet, "/v1/periods/202401/runs?limit="+q)
			testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
		}
	})
}

func TestRecoveryOnPanickingService(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	svc.EXPECT().Progress(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, models.Period) (*ports.Progress, error) { panic("boom") },
	)
	r := chi.NewRouter()
	New(svc, nil, nil).Register(r)

	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/v1/periods/202401/progress"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "internal_error")
}
