package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/cnis-extractor/constants"
	"github.com/joseph-ayodele/cnis-extractor/internal/cnis"
	"github.com/joseph-ayodele/cnis-extractor/internal/common"
	"github.com/joseph-ayodele/cnis-extractor/internal/entity"
	"github.com/joseph-ayodele/cnis-extractor/internal/external"
	"github.com/joseph-ayodele/cnis-extractor/internal/repository"
	"github.com/joseph-ayodele/cnis-extractor/internal/runner"
	"github.com/joseph-ayodele/cnis-extractor/internal/textextract"
)

const twoSections = "EXTRATO PREVIDENCIARIO\n" +
	"12.345.678/0001-90 ACME INDUSTRIA LTDA Empregado 01/02/1990 R$ 1.234,56\n" +
	"98.765.432/0001-10 BETA COMERCIO SA Contribuinte Individual 15/03/2001 2.500,00\n"

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type stubExternal struct {
	out   *external.Output
	err   error
	calls int
}

func (s *stubExternal) Process(context.Context, string) (*external.Output, error) {
	s.calls++
	return s.out, s.err
}

func (s *stubExternal) Probe(context.Context) external.Environment { return external.Environment{} }

func (s *stubExternal) Available() bool { return s.err == nil }

type panickingExtractor struct{}

func (panickingExtractor) Extract(context.Context, string, string) (textextract.Result, error) {
	panic("boom")
}

type fixture struct {
	db     *repository.DB
	docs   repository.DocumentRepository
	emp    repository.EmploymentRepository
	runs   repository.ExtractionRunRepository
	caseID uuid.UUID
	dir    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	return &fixture{
		db:     db,
		docs:   repository.NewDocumentRepository(db, nil),
		emp:    repository.NewEmploymentRepository(db, nil),
		runs:   repository.NewExtractionRunRepository(db, nil),
		caseID: uuid.New(),
		dir:    t.TempDir(),
	}
}

func (f *fixture) processor(ext external.StructuredExtractor, policy constants.DedupPolicy) *Processor {
	text := textextract.NewExtractor(textextract.Config{}, &runner.Fake{}, nil)
	return NewProcessor(Config{Dedup: policy, Now: func() time.Time { return fixedNow }}, f.db, text, ext, nil)
}

func (f *fixture) addDocument(t *testing.T, docType constants.DocumentType, content string, withCase bool) *entity.Document {
	t.Helper()
	path := filepath.Join(f.dir, uuid.NewString()+".txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	doc := &entity.Document{Type: docType, FilePath: path, MediaType: constants.MediaText}
	if withCase {
		doc.CaseID = &f.caseID
	}
	created, err := f.docs.Create(context.Background(), doc)
	require.NoError(t, err)
	return created
}

func decodeStatement(t *testing.T, raw json.RawMessage) cnis.StatementData {
	t.Helper()
	var data cnis.StatementData
	require.NoError(t, json.Unmarshal(raw, &data))
	return data
}

func TestProcessFallsBackWhenToolExitsNonZero(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.addDocument(t, constants.StatementOfContributions, twoSections, true)
	ext := &stubExternal{err: &external.ToolError{ExitCode: 1, Output: "Traceback: parser crashed"}}

	res := f.processor(ext, constants.DedupReplace).ProcessDocument(ctx, doc.ID)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, ext.calls)
	assert.Equal(t, StageDone, res.Stage)
	assert.Equal(t, constants.SourceFallback, res.Source)
	assert.Equal(t, 2, res.EmploymentCreated)

	data := decodeStatement(t, res.Data)
	require.Len(t, data.Employment, 2)
	assert.Equal(t, "ACME INDUSTRIA LTDA", data.Employment[0].Employer)
	assert.Equal(t, "BETA COMERCIO SA", data.Employment[1].Employer)
	assert.InDelta(t, 1234.56, data.Employment[0].LastRemuneration, 1e-9)
	assert.InDelta(t, 2500.0, data.Employment[1].LastRemuneration, 1e-9)
	assert.Equal(t, "fallback", data.Source)
	assert.Equal(t, constants.ContributionRetirement, data.SuggestedBenefit)
	assert.Equal(t, "2024-06-01 12:00:00", data.ProcessedAt)

	got, err := f.docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, got.IsProcessed)
	require.NotNil(t, got.ProcessedAt)
	assert.Equal(t, fixedNow, *got.ProcessedAt)

	rels, err := f.emp.ListByCase(ctx, f.caseID)
	require.NoError(t, err)
	require.Len(t, rels, 2)
	assert.Equal(t, "ACME INDUSTRIA LTDA", rels[0].EmployerName)
	assert.Equal(t, "12.345.678/0001-90", rels[0].EmployerTaxID)
	assert.Equal(t, constants.RelEmployee, rels[0].Position)
	require.NotNil(t, rels[0].StartDate)
	assert.Equal(t, "1990-02-01", *rels[0].StartDate)
	assert.Nil(t, rels[0].EndDate)

	var notes entity.EmploymentNotes
	require.NoError(t, json.Unmarshal([]byte(rels[0].Notes), &notes))
	assert.Equal(t, "12.345.678/0001-90", notes.TaxID)
	assert.Equal(t, doc.ID.String(), notes.SourceDocument)
	assert.InDelta(t, 1234.56, notes.LastRemuneration, 1e-9)
}

func TestProcessFallsBackOnUnusableToolOutput(t *testing.T) {
	script := filepath.Join(t.TempDir(), "extract.py")
	require.NoError(t, os.WriteFile(script, []byte("# tool"), 0o600))

	for name, output := range map[string]string{
		"malformed json":   "log {not json",
		"schema violation": `{"data": {"vinculos_empregaticios": "none"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			doc := f.addDocument(t, constants.StatementOfContributions, twoSections, true)
			fake := &runner.Fake{Func: func(context.Context, string, ...string) ([]byte, []byte, error) {
				return []byte(output), nil, nil
			}}
			ext := external.New(external.Config{Executable: "sh", Script: script}, fake, nil)
			if !ext.Available() {
				t.Skip("sh not available")
			}

			res := f.processor(ext, constants.DedupReplace).ProcessDocument(context.Background(), doc.ID)
			require.True(t, res.Success, res.Error)
			assert.Len(t, fake.Calls(), 1)
			assert.Equal(t, constants.SourceFallback, res.Source)
			assert.Equal(t, 2, res.EmploymentCreated)
			assert.Len(t, decodeStatement(t, res.Data).Employment, 2)
		})
	}
}

func TestProcessWithToolDisabled(t *testing.T) {
	f := newFixture(t)
	doc := f.addDocument(t, constants.StatementOfContributions, twoSections, true)
	ext := external.New(external.Config{}, &runner.Fake{}, nil)
	require.False(t, ext.Available())

	res := f.processor(ext, constants.DedupReplace).ProcessDocument(context.Background(), doc.ID)
	require.True(t, res.Success, res.Error)

	data := decodeStatement(t, res.Data)
	require.Len(t, data.Employment, 2)
	for _, r := range data.Employment {
		assert.NotEmpty(t, r.Employer)
		assert.Greater(t, r.LastRemuneration, 0.0)
	}
}

func TestProcessNothingFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.addDocument(t, constants.StatementOfContributions, "Extrato sem vínculos.\nNada consta.", true)

	res := f.processor(&stubExternal{err: external.ErrUnavailable}, constants.DedupReplace).ProcessDocument(ctx, doc.ID)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, constants.SourceNone, res.Source)
	assert.Zero(t, res.EmploymentCreated)
	assert.Contains(t, string(res.Data), `"vinculos_empregaticios":[]`)
	assert.Equal(t, constants.AgeRetirement, decodeStatement(t, res.Data).SuggestedBenefit)

	got, err := f.docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, got.IsProcessed)
	assert.Contains(t, string(got.ExtractedData), `"vinculos_empregaticios":[]`)

	rels, err := f.emp.ListByCase(ctx, f.caseID)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestProcessUsesToolOutput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.addDocument(t, constants.StatementOfContributions, twoSections, true)
	ext := &stubExternal{out: &external.Output{
		PersonalData: cnis.PersonalData{Name: "MARIA DA SILVA", CPF: "123.456.789-00"},
		Employment: []cnis.EmploymentRecord{
			{Employer: "  PREFEITURA   MUNICIPAL ", StartDate: "2000-06-01", RelationshipType: constants.RelPublicServant},
			{},
		},
		TextLength:  4321,
		ProcessedAt: "2024-01-02T03:04:05Z",
	}}

	res := f.processor(ext, constants.DedupReplace).ProcessDocument(ctx, doc.ID)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, constants.SourceExternal, res.Source)
	assert.Equal(t, 1, res.EmploymentCreated)

	data := decodeStatement(t, res.Data)
	require.Len(t, data.Employment, 1)
	assert.Equal(t, "PREFEITURA MUNICIPAL", data.Employment[0].Employer)
	assert.Equal(t, "MARIA DA SILVA", data.ClientName)
	assert.Equal(t, "123.456.789-00", data.ClientCPF)
	assert.Equal(t, 4321, data.TextLength)
	assert.Equal(t, "2024-01-02 03:04:05", data.ProcessedAt)
	assert.Equal(t, constants.PublicServantRetire, data.SuggestedBenefit)
}

func TestProcessMergesPersonalDataFromFallback(t *testing.T) {
	f := newFixture(t)
	text := "Nome: MARIA DA SILVA  CPF: 123.456.789-00\n" + twoSections
	doc := f.addDocument(t, constants.StatementOfContributions, text, true)
	ext := &stubExternal{out: &external.Output{
		Employment: []cnis.EmploymentRecord{{Employer: "ACME", TaxID: "12.345.678/0001-90"}},
	}}

	res := f.processor(ext, constants.DedupReplace).ProcessDocument(context.Background(), doc.ID)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, constants.SourceMixed, res.Source)

	data := decodeStatement(t, res.Data)
	require.Len(t, data.Employment, 1, "tool records are not replaced by the fallback")
	assert.Equal(t, "123.456.789-00", data.PersonalData.CPF)
	assert.Equal(t, "123.456.789-00", data.ClientCPF)
}

func TestProcessWithoutCaseCreatesNoRelationships(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.addDocument(t, constants.StatementOfContributions, twoSections, false)

	res := f.processor(&stubExternal{err: external.ErrUnavailable}, constants.DedupReplace).ProcessDocument(ctx, doc.ID)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, StageDone, res.Stage)
	assert.Zero(t, res.EmploymentCreated)
	assert.Len(t, decodeStatement(t, res.Data).Employment, 2)

	rels, err := f.emp.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestReprocessingDedupPolicies(t *testing.T) {
	ctx := context.Background()
	unavailable := &stubExternal{err: external.ErrUnavailable}

	t.Run("append duplicates", func(t *testing.T) {
		f := newFixture(t)
		doc := f.addDocument(t, constants.StatementOfContributions, twoSections, true)
		p := f.processor(unavailable, constants.DedupAppend)
		require.True(t, p.ProcessDocument(ctx, doc.ID).Success)
		require.True(t, p.ProcessDocument(ctx, doc.ID).Success)

		rels, err := f.emp.ListByDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Len(t, rels, 4)
	})

	t.Run("replace keeps one set", func(t *testing.T) {
		f := newFixture(t)
		doc := f.addDocument(t, constants.StatementOfContributions, twoSections, true)
		p := f.processor(unavailable, constants.DedupReplace)
		require.True(t, p.ProcessDocument(ctx, doc.ID).Success)
		require.True(t, p.ProcessDocument(ctx, doc.ID).Success)

		rels, err := f.emp.ListByDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Len(t, rels, 2)
	})
}

func TestProcessMissingFileLeavesDocumentUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc, err := f.docs.Create(ctx, &entity.Document{
		CaseID:    &f.caseID,
		Type:      constants.StatementOfContributions,
		FilePath:  filepath.Join(f.dir, "missing.pdf"),
		MediaType: constants.MediaPDF,
	})
	require.NoError(t, err)
	ext := &stubExternal{}

	res := f.processor(ext, constants.DedupReplace).ProcessDocument(ctx, doc.ID)
	assert.False(t, res.Success)
	assert.Equal(t, StageStart, res.Stage)
	assert.NotEmpty(t, res.Error)
	assert.Nil(t, res.Data)
	assert.Zero(t, ext.calls)

	got, err := f.docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, got.IsProcessed)
	assert.Empty(t, got.ExtractedData)

	runs, err := f.runs.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, constants.RunStatusFailed, runs[0].Status)
	require.NotNil(t, runs[0].Error)
}

func TestProcessRecoversFromPanic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.addDocument(t, constants.StatementOfContributions, twoSections, true)
	p := NewProcessor(Config{}, f.db, panickingExtractor{}, &stubExternal{}, nil)

	var res Result
	require.NotPanics(t, func() { res = p.ProcessDocument(ctx, doc.ID) })
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "boom")

	got, err := f.docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, got.IsProcessed)

	runs, err := f.runs.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, constants.RunStatusFailed, runs[0].Status)
}

type panickingDocuments struct {
	repository.DocumentRepository
}

func (panickingDocuments) GetByID(context.Context, uuid.UUID) (*entity.Document, error) {
	panic("corrupt row")
}

func TestProcessRecoversFromPanicWhileLoadingDocument(t *testing.T) {
	f := newFixture(t)
	p := f.processor(&stubExternal{}, constants.DedupReplace)
	p.docs = panickingDocuments{f.docs}

	var res Result
	require.NotPanics(t, func() { res = p.ProcessDocument(context.Background(), uuid.New()) })
	assert.False(t, res.Success)
	assert.Equal(t, StageStart, res.Stage)
	assert.Contains(t, res.Error, "corrupt row")
}

func TestProcessUnknownDocument(t *testing.T) {
	f := newFixture(t)
	res := f.processor(&stubExternal{}, constants.DedupReplace).ProcessDocument(context.Background(), uuid.New())
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, common.ErrNotFound)
}

func TestProcessSuccessRecordsRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.addDocument(t, constants.StatementOfContributions, twoSections, true)

	res := f.processor(&stubExternal{err: external.ErrUnavailable}, constants.DedupReplace).ProcessDocument(ctx, doc.ID)
	require.True(t, res.Success, res.Error)

	runs, err := f.runs.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, constants.RunStatusProcessed, runs[0].Status)
	assert.Equal(t, StageDone, runs[0].Stage)
	assert.Equal(t, constants.SourceFallback, runs[0].Source)
	assert.Nil(t, runs[0].Error)
}

func TestProcessOtherDocumentTypes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ext := &stubExternal{}
	p := f.processor(ext, constants.DedupReplace)

	medical := f.addDocument(t, constants.MedicalReport, "Laudo pericial\nCID: M54.5\nData do Exame: 10/05/2023\nincapacidade parcial", true)
	res := p.ProcessDocument(ctx, medical.ID)
	require.True(t, res.Success, res.Error)
	assert.Contains(t, string(res.Data), `"M54.5"`)
	assert.Contains(t, string(res.Data), `"2023-05-10"`)
	assert.Zero(t, res.EmploymentCreated)

	generic := f.addDocument(t, constants.Generic, "Requerimento de aposentadoria em 01/02/2020 no valor de R$ 1.500,00", true)
	res = p.ProcessDocument(ctx, generic.ID)
	require.True(t, res.Success, res.Error)
	assert.Contains(t, string(res.Data), `"2020-02-01"`)
	assert.Contains(t, string(res.Data), `1500`)

	assert.Zero(t, ext.calls, "only statements go through the structured extractor")

	rels, err := f.emp.ListByCase(ctx, f.caseID)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestSourceOf(t *testing.T) {
	assert.Equal(t, constants.SourceMixed, sourceOf(true, true))
	assert.Equal(t, constants.SourceExternal, sourceOf(true, false))
	assert.Equal(t, constants.SourceFallback, sourceOf(false, true))
	assert.Equal(t, constants.SourceNone, sourceOf(false, false))
}
