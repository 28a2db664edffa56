package chi

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"testing"

	"go.uber.org/zap"

	"github.com/docsift/docsift/internal/domain"
	"github.com/docsift/docsift/internal/usecase/health"
	"github.com/docsift/docsift/internal/usecase/ingest"
)

type submitCall struct {
	userID   string
	filename string
	raw      []byte
}

type fakeIngest struct {
	submitDoc  *domain.Document
	submitErr  error
	submits    []submitCall
	statusRep  ingest.StatusReport
	statusErr  error
	statusDocs []string
}

func (f *fakeIngest) Submit(_ context.Context, userID, filename string, raw []byte) (*domain.Document, error) {
	f.submits = append(f.submits, submitCall{userID: userID, filename: filename, raw: raw})
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.submitDoc, nil
}

func (f *fakeIngest) Status(_ context.Context, _, docID string) (ingest.StatusReport, error) {
	f.statusDocs = append(f.statusDocs, docID)
	if f.statusErr != nil {
		return ingest.StatusReport{}, f.statusErr
	}
	return f.statusRep, nil
}

type fakeQuery struct {
	answer    domain.Answer
	err       error
	questions []string
}

func (f *fakeQuery) Answer(_ context.Context, _, question string) (domain.Answer, error) {
	f.questions = append(f.questions, question)
	if f.err != nil {
		return domain.Answer{}, f.err
	}
	return f.answer, nil
}

type fakeHealth struct {
	report health.Report
}

func (f *fakeHealth) Check(_ context.Context) health.Report {
	return f.report
}

type serverFixture struct {
	ingest  *fakeIngest
	query   *fakeQuery
	health  *fakeHealth
	handler http.Handler
}

func newServerFixture(maxUpload int64) *serverFixture {
	f := &serverFixture{
		ingest: &fakeIngest{},
		query:  &fakeQuery{},
		health: &fakeHealth{report: health.Report{Status: health.Healthy}},
	}
	srv := NewServer(f.ingest, f.query, f.health, maxUpload, zap.NewNop())
	f.handler = srv.Routes(nil)
	return f
}

// pdfUpload builds a multipart body with a single file part.
func pdfUpload(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}
