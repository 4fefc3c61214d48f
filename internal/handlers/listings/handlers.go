package listings

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"realestate/internal/config"
	"realestate/internal/handlers/calculator"
	apphttp "realestate/internal/http"
	"realestate/internal/models"
	"realestate/internal/money"
	"realestate/internal/services/auth"
	"realestate/internal/services/classifier"
	"realestate/internal/services/docstore"
	"realestate/internal/services/listingimport"
	"realestate/internal/services/mortgage"
	"realestate/internal/services/storage"
)

// Collection holds listing documents
const Collection = "listings"

// maxImportBytes bounds CSV uploads
const maxImportBytes = 10 << 20

// ErrInvalidListing wraps listing validation failures
var ErrInvalidListing = errors.New("invalid listing")

var (
	store    docstore.Store
	files    *storage.Storage
	calc     *mortgage.Calculator
	defaults config.CalculatorDefaults
)

// Initialize sets up the listings package with required dependencies.
// s may be nil, in which case imported CSVs are not archived.
func Initialize(ds docstore.Store, s *storage.Storage, c *mortgage.Calculator, cfg *config.Config) {
	store = ds
	files = s
	calc = c
	defaults = cfg.Calculator
}

// RegisterRoutes registers all listing routes
func RegisterRoutes(r chi.Router) {
	r.Route("/api/listings", func(r chi.Router) {
		r.Get("/", handleList)
		r.With(auth.RequireRole(models.RoleAgent, models.RoleAdmin)).Post("/", handleCreate)
		r.With(auth.RequireRole(models.RoleAdmin)).Post("/import", handleImport)

		r.Get("/{id}", handleGet)
		r.Get("/{id}/mortgage", handleMortgage)
		r.With(auth.RequireAuth).Put("/{id}", handleUpdate)
		r.With(auth.RequireAuth).Delete("/{id}", handleDelete)
	})
}

// ListingInput is the writable part of a listing. Nil fields are left
// unchanged on update.
type ListingInput struct {
	Title              *string               `json:"title"`
	Description        *string               `json:"description"`
	Address            *string               `json:"address"`
	City               *string               `json:"city"`
	PropertyType       *string               `json:"property_type"`
	Price              *float64              `json:"price"`
	Bedrooms           *int                  `json:"bedrooms"`
	Bathrooms          *float64              `json:"bathrooms"`
	AreaSqft           *float64              `json:"area_sqft"`
	YearBuilt          *int                  `json:"year_built"`
	HOAMonthly         *float64              `json:"hoa_monthly"`
	PropertyTaxRatePct *float64              `json:"property_tax_rate"`
	Status             *models.ListingStatus `json:"status"`
	AgentID            *string               `json:"agent_id"`
}

// apply copies the set fields onto l
func (in *ListingInput) apply(l *models.Listing) {
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	setString(&l.Title, in.Title)
	setString(&l.Description, in.Description)
	setString(&l.Address, in.Address)
	setString(&l.City, in.City)
	setString(&l.PropertyType, in.PropertyType)
	setString(&l.AgentID, in.AgentID)

	if in.Price != nil {
		l.Price = *in.Price
	}
	if in.Bedrooms != nil {
		l.Bedrooms = *in.Bedrooms
	}
	if in.Bathrooms != nil {
		l.Bathrooms = *in.Bathrooms
	}
	if in.AreaSqft != nil {
		l.AreaSqft = *in.AreaSqft
	}
	if in.YearBuilt != nil {
		l.YearBuilt = *in.YearBuilt
	}
	if in.HOAMonthly != nil {
		l.HOAMonthly = *in.HOAMonthly
	}
	if in.PropertyTaxRatePct != nil {
		l.PropertyTaxRatePct = *in.PropertyTaxRatePct
	}
	if in.Status != nil {
		l.Status = *in.Status
	}
}

// Validate checks a listing before it is stored
func Validate(l *models.Listing) error {
	if l.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidListing)
	}
	if l.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidListing)
	}
	if l.Bedrooms < 0 || l.Bathrooms < 0 || l.AreaSqft < 0 || l.HOAMonthly < 0 || l.PropertyTaxRatePct < 0 {
		return fmt.Errorf("%w: numeric fields must not be negative", ErrInvalidListing)
	}
	if !l.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidListing, l.Status)
	}
	return nil
}

// SelfComplete fills what a seller may leave out: the property type is
// classified from the text and the estimated monthly payment comes from
// the mortgage engine with the configured purchase defaults.
func SelfComplete(l *models.Listing) {
	if l.PropertyType == "" {
		l.PropertyType = classifier.Classify(l.Title, l.Description)
	} else {
		l.PropertyType = classifier.NormalizeType(l.PropertyType)
	}
	in := defaults.LoanInputs(l.Price, l.HOAMonthly, l.PropertyTaxRatePct)
	l.EstimatedMonthlyPayment = money.Round(calc.Calculate(in).Payment.TotalMonthlyPayment)
}

// Load returns every stored listing
func Load(ctx context.Context, ds docstore.Store) (*models.ListingSet, error) {
	docs, err := ds.List(ctx, Collection, nil)
	if err != nil {
		return nil, fmt.Errorf("listing listings: %w", err)
	}
	listings, err := docstore.DecodeAll[models.Listing](docs)
	if err != nil {
		return nil, err
	}
	return models.NewListingSet(listings), nil
}

// Create stores a new listing owned by ownerUID
func Create(ctx context.Context, l models.Listing, ownerUID string) (models.Listing, error) {
	l.ID = ""
	l.OwnerUID = ownerUID
	if l.Status == "" {
		l.Status = models.StatusActive
	}
	SelfComplete(&l)
	if err := Validate(&l); err != nil {
		return models.Listing{}, err
	}

	doc, err := docstore.Encode(l)
	if err != nil {
		return models.Listing{}, err
	}
	created, err := store.Create(ctx, Collection, doc)
	if err != nil {
		return models.Listing{}, err
	}
	var out models.Listing
	err = docstore.Decode(created, &out)
	return out, err
}

func get(ctx context.Context, id string) (models.Listing, error) {
	doc, err := store.Get(ctx, Collection, id)
	if err != nil {
		return models.Listing{}, err
	}
	var l models.Listing
	err = docstore.Decode(doc, &l)
	return l, err
}

// writeStoreError maps docstore errors onto responses
func writeStoreError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, docstore.ErrNotFound), errors.Is(err, docstore.ErrInvalidName):
		apphttp.ErrorJSON(w, "listing not found", http.StatusNotFound)
	default:
		apphttp.InternalError(w, msg, err)
	}
}

// canModify reports whether the request principal owns l or is an admin
func canModify(r *http.Request, l *models.Listing) bool {
	p, ok := auth.PrincipalFromContext(r.Context())
	return ok && (p.IsAdmin() || p.UID == l.OwnerUID)
}

// parseFilter reads ListingFilter fields from the query string
func parseFilter(r *http.Request) (models.ListingFilter, error) {
	q := r.URL.Query()
	f := models.ListingFilter{
		City:         q.Get("city"),
		PropertyType: q.Get("type"),
		Status:       models.ListingStatus(q.Get("status")),
		Search:       q.Get("search"),
	}
	if f.Status != "" && !f.Status.Valid() {
		return f, fmt.Errorf("unknown status %q", f.Status)
	}

	var err error
	if f.MinPrice, err = apphttp.ParseFormFloat(r, "min_price", 0); err != nil {
		return f, err
	}
	if f.MaxPrice, err = apphttp.ParseFormFloat(r, "max_price", 0); err != nil {
		return f, err
	}
	if f.MinBedrooms, err = apphttp.ParseFormInt(r, "min_beds", 0); err != nil {
		return f, err
	}
	return f, nil
}

func handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}

	sortField := r.URL.Query().Get("sort")
	order := r.URL.Query().Get("order")
	if sortField == "" {
		sortField = "created"
	}
	switch sortField {
	case "price", "area", "created":
	default:
		apphttp.ErrorJSON(w, fmt.Sprintf("unknown sort field %q", sortField), http.StatusBadRequest)
		return
	}
	desc := order != "asc"
	if order == "" && sortField == "price" {
		desc = false
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	all, err := Load(r.Context(), store)
	if err != nil {
		apphttp.InternalError(w, "loading listings", err)
		return
	}

	filtered := all.Filter(filter).Sort(sortField, desc)
	totalPages := filtered.TotalPages(perPage)
	paginated := filtered.Paginate(page, perPage)

	apphttp.WriteJSON(w, http.StatusOK, models.ListingPage{
		Listings:   paginated.Listings,
		Total:      filtered.Len(),
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	})
}

func handleGet(w http.ResponseWriter, r *http.Request) {
	l, err := get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "loading listing", err)
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, l)
}

func handleCreate(w http.ResponseWriter, r *http.Request) {
	var in ListingInput
	if err := apphttp.DecodeJSON(r, &in); err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}

	var l models.Listing
	in.apply(&l)
	p, _ := auth.PrincipalFromContext(r.Context())

	created, err := Create(r.Context(), l, p.UID)
	if err != nil {
		if errors.Is(err, ErrInvalidListing) {
			apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
			return
		}
		apphttp.InternalError(w, "creating listing", err)
		return
	}
	slog.Info("listing created", "id", created.ID, "owner", created.OwnerUID)
	apphttp.WriteJSON(w, http.StatusCreated, created)
}

func handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	l, err := get(r.Context(), id)
	if err != nil {
		writeStoreError(w, "loading listing", err)
		return
	}
	if !canModify(r, &l) {
		apphttp.ErrorJSON(w, auth.ErrForbidden.Error(), http.StatusForbidden)
		return
	}

	var in ListingInput
	if err := apphttp.DecodeJSON(r, &in); err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}
	in.apply(&l)
	SelfComplete(&l)
	if err := Validate(&l); err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}

	patch, err := docstore.Encode(l)
	if err != nil {
		apphttp.InternalError(w, "encoding listing", err)
		return
	}
	updated, err := store.Update(r.Context(), Collection, id, patch)
	if err != nil {
		writeStoreError(w, "updating listing", err)
		return
	}

	var out models.Listing
	if err := docstore.Decode(updated, &out); err != nil {
		apphttp.InternalError(w, "decoding listing", err)
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, out)
}

func handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	l, err := get(r.Context(), id)
	if err != nil {
		writeStoreError(w, "loading listing", err)
		return
	}
	if !canModify(r, &l) {
		apphttp.ErrorJSON(w, auth.ErrForbidden.Error(), http.StatusForbidden)
		return
	}

	if err := store.Delete(r.Context(), Collection, id); err != nil {
		writeStoreError(w, "deleting listing", err)
		return
	}
	slog.Info("listing deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleMortgage runs the engine for a listing. Query values such as
// interest_rate or down_payment_pct override the configured defaults.
func handleMortgage(w http.ResponseWriter, r *http.Request) {
	l, err := get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "loading listing", err)
		return
	}

	base := defaults.LoanInputs(l.Price, l.HOAMonthly, l.PropertyTaxRatePct)
	in, err := calculator.ParseLoanForm(r, base)
	if err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, calculator.Calculate(r.Context(), in))
}

// ImportResponse reports the outcome of a CSV import
type ImportResponse struct {
	Imported   int                      `json:"imported"`
	IDs        []string                 `json:"ids"`
	Skipped    []listingimport.RowError `json:"skipped"`
	Duplicates int                      `json:"duplicates"`
}

// handleImport accepts a CSV either as the multipart field "file" or as
// the raw request body
func handleImport(w http.ResponseWriter, r *http.Request) {
	name, data, err := readUpload(w, r)
	if err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := listingimport.Parse(bytes.NewReader(data))
	if err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Keep the source file next to the data (encrypted when enabled)
	if files != nil {
		archived := path.Join("imports", time.Now().UTC().Format("20060102-150405")+"-"+name)
		if err := files.WriteFile(archived, data); err != nil {
			slog.Warn("archiving imported CSV", "file", archived, "error", err)
		}
	}

	p, _ := auth.PrincipalFromContext(r.Context())
	resp := ImportResponse{IDs: []string{}, Skipped: result.Skipped, Duplicates: result.Duplicates}
	if resp.Skipped == nil {
		resp.Skipped = []listingimport.RowError{}
	}
	for _, l := range result.Listings {
		created, err := Create(r.Context(), l, p.UID)
		if err != nil {
			resp.Skipped = append(resp.Skipped, listingimport.RowError{Reason: fmt.Sprintf("%s: %v", l.Title, err)})
			continue
		}
		resp.IDs = append(resp.IDs, created.ID)
	}
	resp.Imported = len(resp.IDs)

	slog.Info("listings imported", "file", name, "imported", resp.Imported, "skipped", len(resp.Skipped))
	apphttp.WriteJSON(w, http.StatusOK, resp)
}

func readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxImportBytes); err != nil {
			return "", nil, fmt.Errorf("file too large or malformed upload")
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, fmt.Errorf("missing file field")
		}
		defer file.Close()

		if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
			return "", nil, fmt.Errorf("only CSV files are allowed")
		}
		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, fmt.Errorf("error reading file")
		}
		return sanitizeName(header.Filename), data, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, fmt.Errorf("error reading body: %w", err)
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("request body is empty")
	}
	return "upload.csv", data, nil
}

// sanitizeName keeps the base name with only safe characters
func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '-', c == '_':
			b.WriteRune(c)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
