package handler

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"outpost/internal/dal"
	"outpost/internal/edgar"
	"outpost/internal/llm"
	"outpost/internal/storage"
	"outpost/internal/tenant"
)

// TenantIDHeader carries the tenant id out-of-band; it is never part of the
// request body.
const TenantIDHeader = "Tenant-ID"

// defaultCIK is Apple's CIK, used when the caller omits the query parameter.
const defaultCIK = "0000320193"

// Dispatcher executes exactly one document action on behalf of a tenant.
// Implemented by dal.Dispatcher; faked in tests.
type Dispatcher interface {
	Dispatch(ctx context.Context, tenantID string, env dal.Envelope) (*dal.Result, *dal.Error)
}

// TenantRegistry reports which tenants currently hold live connections.
// Implemented by tenant.Manager.
type TenantRegistry interface {
	Loaded() []tenant.ID
}

// SECClient fetches ticker and filing data from EDGAR. Implemented by
// edgar.Client.
type SECClient interface {
	Tickers(ctx context.Context) (map[string]edgar.Company, error)
	TenKFilings(ctx context.Context, cik string) ([]edgar.Filing, error)
}

// Dependencies bundles everything the route handlers need. Blobs, SEC and LLM
// may be nil when the corresponding backend is not configured; their handlers
// then answer 503.
type Dependencies struct {
	DAL     Dispatcher
	Tenants TenantRegistry
	Blobs   storage.BlobStore
	SEC     SECClient
	LLM     llm.Completer
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Keep handlers minimal: envelope parsing and status mapping only.
func RegisterRoutes(app *fiber.App, deps Dependencies) {
	app.Get("/health", HealthCheck(deps.Tenants))
	app.Get("/healthz", LivenessProbe())

	// The dispatch endpoint accepts POST only, but registers for all methods
	// so non-POST callers get a deliberate 405 with an Allow header instead
	// of a generic router miss.
	app.All("/dal", DispatchDAL(deps.DAL))

	api := app.Group("/api")
	api.Post("/blob", UploadBlob(deps.Blobs))
	api.Get("/blob/*", DownloadBlob(deps.Blobs))
	api.Get("/sec-tickers", SECTickers(deps.SEC))
	api.Get("/edgar-company-facts", CompanyFacts(deps.SEC))
	api.Post("/llm", Complete(deps.LLM))
}

// HealthCheck reports service health and the set of tenants with live
// database connections. Tenants initialize lazily, so an empty list is a
// normal state right after startup.
func HealthCheck(tenants TenantRegistry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		loaded := []string{}
		if tenants != nil {
			for _, id := range tenants.Loaded() {
				loaded = append(loaded, string(id))
			}
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":        "healthy",
			"tenantsLoaded": loaded,
		})
	}
}

// LivenessProbe is a trivial probe for orchestrators.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// DispatchDAL handles POST /dal: one envelope in, one action result out.
// Everything beyond method and JSON parsing lives in the dispatcher.
func DispatchDAL(d Dispatcher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost {
			c.Set(fiber.HeaderAllow, fiber.MethodPost)
			return writeError(c, fiber.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method Not Allowed")
		}

		var env dal.Envelope
		if err := c.BodyParser(&env); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", `Request body must include "action" and "params".`)
		}

		res, derr := d.Dispatch(c.UserContext(), c.Get(TenantIDHeader), env)
		if derr != nil {
			return writeError(c, derr.Status, derr.Code, derr.Message)
		}
		return c.Status(res.Status).JSON(res.Body)
	}
}

// UploadBlob stores the raw request body under a collision-free key derived
// from the filename query parameter and returns a pre-signed download URL.
func UploadBlob(blobs storage.BlobStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if blobs == nil {
			return writeError(c, fiber.StatusServiceUnavailable, "BLOB_UNAVAILABLE", "Blob storage is not configured.")
		}

		filename := c.Query("filename")
		if filename == "" {
			return writeError(c, fiber.StatusBadRequest, "MISSING_FILENAME", "Missing required query parameter: filename")
		}
		body := c.Body()
		if len(body) == 0 {
			return writeError(c, fiber.StatusBadRequest, "EMPTY_BODY", "No file data received")
		}

		ext := filepath.Ext(filename)
		stem := strings.TrimSuffix(filepath.Base(filename), ext)
		key := "blobs/" + stem + "-" + uuid.NewString() + ext

		ct := c.Get(fiber.HeaderContentType)
		if ct == "" {
			ct = "application/octet-stream"
		}

		_, err := blobs.Put(c.UserContext(), key, bytes.NewReader(body), storage.PutOptions{
			Size:        int64(len(body)),
			ContentType: ct,
		})
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "An internal server error occurred.")
		}

		blobURL, err := blobs.PresignGet(c.UserContext(), key, 24*time.Hour)
		if err != nil {
			// The object is stored; fall back to the gateway download path.
			blobURL = "/api/blob/" + key
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"success": true,
			"blobUrl": blobURL,
			"key":     key,
			"message": "File uploaded successfully.",
		})
	}
}

// DownloadBlob streams a stored object back through the gateway.
func DownloadBlob(blobs storage.BlobStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if blobs == nil {
			return writeError(c, fiber.StatusServiceUnavailable, "BLOB_UNAVAILABLE", "Blob storage is not configured.")
		}

		key := c.Params("*")
		if key == "" {
			return writeError(c, fiber.StatusBadRequest, "MISSING_KEY", "Missing blob key.")
		}

		rc, info, err := blobs.Get(c.UserContext(), key)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "Blob not found.")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "An internal server error occurred.")
		}

		if info.ContentType != "" {
			c.Set(fiber.HeaderContentType, info.ContentType)
		}
		// SendStream takes an int; sizes outside the platform int range
		// stream as unknown length instead of truncating.
		size := -1
		if info.Size > 0 && info.Size <= int64(math.MaxInt) {
			size = int(info.Size)
		}
		return c.SendStream(rc, size)
	}
}

// SECTickers returns the full SEC ticker directory.
func SECTickers(sec SECClient) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sec == nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SEC_UNAVAILABLE", "SEC client is not configured.")
		}

		tickers, err := sec.Tickers(c.UserContext())
		if err != nil {
			return writeUpstreamError(c, err)
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"success":   true,
			"count":     len(tickers),
			"data":      tickers,
			"timestamp": nowStamp(),
		})
	}
}

// CompanyFacts returns the 10-K filing history for one company, identified by
// CIK. Defaults to Apple when the query parameter is absent.
func CompanyFacts(sec SECClient) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sec == nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SEC_UNAVAILABLE", "SEC client is not configured.")
		}

		cik, err := edgar.PadCIK(c.Query("cik", defaultCIK))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_CIK", "CIK must be a number of at most ten digits.")
		}

		filings, err := sec.TenKFilings(c.UserContext(), cik)
		if err != nil {
			return writeUpstreamError(c, err)
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"success":     true,
			"cik":         cik,
			"count":       len(filings),
			"tenKReports": filings,
			"timestamp":   nowStamp(),
		})
	}
}

// Complete runs a single prompt through the configured language model.
func Complete(model llm.Completer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if model == nil {
			return writeError(c, fiber.StatusServiceUnavailable, "LLM_UNAVAILABLE", "Language model is not configured.")
		}

		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "Request body must be valid JSON.")
		}
		if strings.TrimSpace(req.Prompt) == "" {
			return writeError(c, fiber.StatusBadRequest, "MISSING_PROMPT", "Missing required field: prompt")
		}

		answer, err := model.Complete(c.UserContext(), req.Prompt)
		if err != nil {
			return writeError(c, fiber.StatusBadGateway, "LLM_ERROR", "The language model request failed.")
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"success": true,
			"data": fiber.Map{
				"modelUsed": model.Model(),
				"provider":  "Google Gemini",
				"prompt":    req.Prompt,
				"response":  answer,
				"timestamp": nowStamp(),
			},
		})
	}
}

// writeUpstreamError maps EDGAR client failures onto gateway statuses: slow
// upstream is a 504, everything else a 502.
func writeUpstreamError(c *fiber.Ctx, err error) error {
	if errors.Is(err, edgar.ErrUpstreamTimeout) {
		return writeError(c, fiber.StatusGatewayTimeout, "UPSTREAM_TIMEOUT", "The SEC did not respond in time.")
	}
	return writeError(c, fiber.StatusBadGateway, "UPSTREAM_ERROR", "The SEC request failed.")
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
