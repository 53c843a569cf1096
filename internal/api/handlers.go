package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"finstmt/internal/ingest"
	"finstmt/pkg/domain"

	"github.com/gorilla/mux"
)

// maxUploadBytes caps workbook uploads.
const maxUploadBytes = 32 << 20

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, s.repo.Status(r.Context()))
}

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.repo.Companies(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if companies == nil {
		companies = []domain.Company{}
	}
	writeData(w, http.StatusOK, companies)
}

func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	rt, err := recordType(r)
	if err != nil {
		writeError(w, err)
		return
	}
	f := domain.Filter{
		TaxID:       r.URL.Query().Get("taxId"),
		CompanyName: r.URL.Query().Get("companyName"),
	}
	if y := r.URL.Query().Get("year"); y != "" {
		n, err := strconv.Atoi(y)
		if err != nil {
			writeError(w, domain.Validationf("year %q is not an integer", y))
			return
		}
		f.FiscalYear = n
	}
	records, err := s.repo.Find(r.Context(), rt, f)
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []domain.Record{}
	}
	writeData(w, http.StatusOK, records)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rt, taxID, year, err := recordKey(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rec, err := s.repo.FindByKey(r.Context(), rt, taxID, year)
	if err != nil {
		writeError(w, err)
		return
	}
	if rec == nil {
		writeError(w, domain.NotFoundf("no %s record for %s/%d", rt, taxID, year))
		return
	}
	writeData(w, http.StatusOK, rec)
}

func (s *Server) handleUpsert(w http.ResponseWriter, r *http.Request) {
	rt, err := recordType(r)
	if err != nil {
		writeError(w, err)
		return
	}
	row, err := decodeRow(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rec, inserted, err := s.repo.Upsert(r.Context(), rt, row)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if inserted {
		status = http.StatusCreated
	}
	writeData(w, status, map[string]any{"record": rec, "inserted": inserted})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	rt, taxID, year, err := recordKey(r)
	if err != nil {
		writeError(w, err)
		return
	}
	row, err := decodeRow(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rec, err := s.repo.Update(r.Context(), rt, taxID, year, row)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, rec)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	rt, taxID, year, err := recordKey(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rec, err := s.repo.Delete(r.Context(), rt, taxID, year)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, rec)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	rt, err := recordType(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Records []domain.RawRow `json:"records"`
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		writeError(w, domain.Validationf("invalid JSON body: %v", err))
		return
	}
	if len(body.Records) == 0 {
		writeError(w, domain.Validationf("records must be a non-empty array"))
		return
	}
	result, err := s.repo.BatchUpsert(r.Context(), rt, body.Records)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, result)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	defer func() { _ = r.Body.Close() }()

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, domain.Validationf("invalid multipart body: %v", err))
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, domain.Validationf("missing form file %q", "file"))
			return
		}
		defer func() { _ = file.Close() }()
		src = file
	}
	report, err := s.ingest.ImportWorkbook(r.Context(), src)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, report)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	f := domain.Filter{
		TaxID:       r.URL.Query().Get("taxId"),
		CompanyName: r.URL.Query().Get("companyName"),
	}
	if y := r.URL.Query().Get("year"); y != "" {
		n, err := strconv.Atoi(y)
		if err != nil {
			writeError(w, domain.Validationf("year %q is not an integer", y))
			return
		}
		f.FiscalYear = n
	}
	opts := ingest.ExportOptions{
		InMillions: r.URL.Query().Get("inMillions") == "true",
	}
	data, err := s.ingest.ExportWorkbook(r.Context(), f, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="records.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func recordType(r *http.Request) (domain.RecordType, error) {
	return domain.ParseRecordType(mux.Vars(r)["type"])
}

func recordKey(r *http.Request) (domain.RecordType, string, int, error) {
	rt, err := recordType(r)
	if err != nil {
		return "", "", 0, err
	}
	vars := mux.Vars(r)
	year, err := strconv.Atoi(vars["year"])
	if err != nil {
		return "", "", 0, domain.Validationf("year %q is not an integer", vars["year"])
	}
	return rt, vars["taxId"], year, nil
}

// decodeRow parses a JSON object body with numbers kept as json.Number so
// large figures survive coercion.
func decodeRow(r *http.Request) (domain.RawRow, error) {
	var row domain.RawRow
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&row); err != nil {
		return nil, domain.Validationf("invalid JSON body: %v", err)
	}
	return row, nil
}
