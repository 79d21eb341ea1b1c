package analyses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coverletter-backend/internal/agents"
	"coverletter-backend/internal/llm"
	"coverletter-backend/internal/pipeline"
)

type fakeSkills struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSkills) Analyze(ctx context.Context, content string, _ map[string]string) (agents.SkillsAnalysisResult, error) {
	f.calls.Add(1)
	if f.err != nil {
		return agents.SkillsAnalysisResult{}, f.err
	}
	if content == "" {
		return agents.SkillsAnalysisResult{}, &agents.ValidationError{Field: "content", Message: "must not be empty"}
	}
	return agents.SkillsAnalysisResult{TechnicalSkills: []agents.TechnicalSkill{{Name: "Go", Years: 5}}}, nil
}

type fakeRequirements struct{ calls atomic.Int32 }

func (f *fakeRequirements) Analyze(ctx context.Context, jd string, _ map[string]string) (agents.RequirementsAnalysisResult, error) {
	f.calls.Add(1)
	return agents.RequirementsAnalysisResult{CoreRequirements: []agents.Requirement{{Skill: "Go", YearsExperience: 3}}}, nil
}

type realStrategy struct{}

func (realStrategy) Plan(ctx context.Context, s agents.SkillsAnalysisResult, r agents.RequirementsAnalysisResult) (agents.StrategyResult, error) {
	gaps, matches := agents.AnalyzeGaps(s, r)
	return agents.StrategyResult{SkillGaps: gaps, StrongMatches: matches}, nil
}

type fakeATS struct{ got agents.ATSInput }

func (f *fakeATS) Scan(ctx context.Context, in agents.ATSInput) (agents.ATSReport, error) {
	f.got = in
	return agents.ATSReport{Score: 72}, nil
}

type fakeValidation struct{}

func (fakeValidation) Validate(ctx context.Context, in agents.ValidationInput) (agents.ValidationReport, error) {
	return agents.ValidationReport{Confidence: 0.9}, nil
}

type fakeTerms struct{}

func (fakeTerms) Standardize(ctx context.Context, jd, letter string) (agents.TermsReport, error) {
	return agents.TermsReport{}, &agents.ModelError{Agent: "terms", Err: &llm.QuotaError{Message: "billing"}}
}

type testHandler struct {
	Handler
	skills *fakeSkills
	reqs   *fakeRequirements
	ats    *fakeATS
}

func newTestHandler() *testHandler {
	th := &testHandler{skills: &fakeSkills{}, reqs: &fakeRequirements{}, ats: &fakeATS{}}
	th.Handler = Handler{
		Skills:       th.skills,
		Requirements: th.reqs,
		Strategy:     realStrategy{},
		ATS:          th.ats,
		Validation:   fakeValidation{},
		Terms:        fakeTerms{},
	}
	return th
}

func (th *testHandler) router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	th.RegisterRoutes(r.Group("/api"))
	return r
}

func post(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	return env
}

func TestAnalyzeSkills(t *testing.T) {
	th := newTestHandler()
	r := th.router()

	resp := post(r, "/api/analyze/skills", map[string]any{"content": "Go developer"})
	require.Equal(t, http.StatusOK, resp.Code)
	var res agents.SkillsAnalysisResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &res))
	assert.Equal(t, "Go", res.TechnicalSkills[0].Name)

	resp = post(r, "/api/analyze/skills", map[string]any{"content": ""})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, ErrorCodeValidation, decodeError(t, resp).Error.Code)
}

func TestAnalyzeStrategyRunsBothAnalyses(t *testing.T) {
	th := newTestHandler()
	r := th.router()

	resp := post(r, "/api/analyze/strategy", map[string]any{
		"resume_content":  "Go developer",
		"job_description": "Go role",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var res agents.StrategyResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &res))
	require.Len(t, res.StrongMatches, 1)
	assert.Equal(t, "Go", res.StrongMatches[0].Skill)
	assert.EqualValues(t, 1, th.skills.calls.Load())
	assert.EqualValues(t, 1, th.reqs.calls.Load())
}

func TestAnalyzeStrategyUsesSuppliedAnalyses(t *testing.T) {
	th := newTestHandler()
	r := th.router()

	resp := post(r, "/api/analyze/strategy", map[string]any{
		"skills_analysis":       map[string]any{"technical_skills": []any{map[string]any{"name": "Python"}}},
		"requirements_analysis": map[string]any{"core_requirements": []any{map[string]any{"skill": "Go"}}},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var res agents.StrategyResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &res))
	require.Len(t, res.SkillGaps, 1)
	assert.Equal(t, "Go", res.SkillGaps[0].Skill)
	assert.Zero(t, th.skills.calls.Load())
	assert.Zero(t, th.reqs.calls.Load())
}

func TestATSAcceptsDraftObject(t *testing.T) {
	th := newTestHandler()
	r := th.router()

	resp := post(r, "/api/analyze/ats", map[string]any{
		"cover_letter": map[string]any{
			"sections": []any{
				map[string]any{"name": "greeting", "text": "Dear team,"},
				map[string]any{"name": "body", "text": "I build Go services."},
			},
		},
		"job_description": "Go role",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "Dear team,\n\nI build Go services.", th.ats.got.Letter)
}

func TestBadJSONIsValidationError(t *testing.T) {
	r := newTestHandler().router()

	req := httptest.NewRequest(http.MethodPost, "/api/validate/content", bytes.NewBufferString("{"))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, ErrorCodeValidation, decodeError(t, resp).Error.Code)
}

func TestQuotaMapsTo429(t *testing.T) {
	r := newTestHandler().router()

	resp := post(r, "/api/standardize/terms", map[string]any{"job_description": "Go", "cover_letter": "Go"})
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, ErrorCodeQuota, decodeError(t, resp).Error.Code)
}

func TestRespondErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &agents.ValidationError{Field: "resume", Message: "must not be empty"}, http.StatusBadRequest, ErrorCodeValidation},
		{"not found", ErrNotFound, http.StatusNotFound, ErrorCodeNotFound},
		{"quota", &agents.ModelError{Agent: "skills", Err: &llm.QuotaError{Message: "x"}}, http.StatusTooManyRequests, ErrorCodeQuota},
		{"transient", &agents.ModelError{Agent: "skills", Err: &llm.TransientError{Op: "complete", Err: errors.New("503")}}, http.StatusServiceUnavailable, ErrorCodeModelUnavailable},
		{"malformed", &agents.ModelError{Agent: "skills", Err: &llm.MalformedResponseError{Reason: "no json"}}, http.StatusInternalServerError, ErrorCodeMalformedResponse},
		{"other model", &agents.ModelError{Agent: "skills", Err: errors.New("400 bad request")}, http.StatusBadGateway, ErrorCodeModel},
		{"unknown", errors.New("disk full"), http.StatusInternalServerError, ErrorCodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(resp)
			c.Request = httptest.NewRequest(http.MethodPost, "/api/generate", nil)

			RespondError(c, tc.err)

			assert.Equal(t, tc.status, resp.Code)
			assert.Equal(t, tc.code, decodeError(t, resp).Error.Code)
		})
	}
}

func TestRespondErrorIncludesStage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	resp := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(resp)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/generate", nil)

	RespondError(c, &pipeline.StageError{
		Stage: pipeline.StageRequirements,
		Err:   &agents.ModelError{Agent: "requirements", Err: &llm.TransientError{Op: "complete", Err: errors.New("timeout")}},
	})

	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	env := decodeError(t, resp)
	assert.Equal(t, "requirements", env.Error.Details["stage"])
}
