package services

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"powersearch/models"
	"powersearch/utils"
)

const probeWorkers = 8

var errProbeInconclusive = eris.New("probe inconclusive")

// ValidatorOptions configures the optional reachability probe.
type ValidatorOptions struct {
	Probe   bool
	Retries int
	Timeout time.Duration
	Client  *http.Client
	Sleep   utils.Sleeper
}

// Validator drops listings whose URL cannot lead anywhere.
type Validator struct {
	logger *utils.Logger
	opts   ValidatorOptions
}

// NewValidator creates a Validator with the given logger.
func NewValidator(logger *utils.Logger, opts ValidatorOptions) *Validator {
	if opts.Client == nil {
		opts.Client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	return &Validator{logger: logger, opts: opts}
}

// ValidURL reports whether raw is an absolute http(s) URL with a host.
func ValidURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Validate returns the listings that pass, in input order, and the number
// dropped. The probe only removes listings that are definitively gone.
func (v *Validator) Validate(ctx context.Context, listings []models.Listing) ([]models.Listing, int) {
	keep := make([]bool, len(listings))
	for i, l := range listings {
		keep[i] = ValidURL(l.URL)
		if !keep[i] {
			v.logger.Debug("[validate] Dropping listing with invalid URL %q: %s", l.URL, l.Title)
		}
	}

	if v.opts.Probe {
		pool := utils.NewWorkerPool(probeWorkers, 0)
		for i := range listings {
			if !keep[i] {
				continue
			}
			i := i
			pool.Submit(ctx, func(ctx context.Context) {
				if v.gone(ctx, listings[i].URL) {
					keep[i] = false
				}
			})
		}
		pool.Wait()
	}

	out := make([]models.Listing, 0, len(listings))
	for i, l := range listings {
		if keep[i] {
			out = append(out, l)
		}
	}
	dropped := len(listings) - len(out)
	v.logger.Info("[validate] Validated %d → %d listings (dropped %d)", len(listings), len(out), dropped)
	return out, dropped
}

// gone issues HEAD requests with retries. Only a 404 or 410 counts; every
// other outcome, including a panic in the client, keeps the listing.
func (v *Validator) gone(ctx context.Context, target string) (dead bool) {
	defer func() {
		if rec := recover(); rec != nil {
			v.logger.Warn("[validate] Probe of %s panicked, keeping listing: %v", target, rec)
			dead = false
		}
	}()

	var status int
	retry := &utils.RetryConfig{
		MaxAttempts: v.opts.Retries,
		BaseDelay:   time.Second,
		Sleep:       v.opts.Sleep,
	}
	_ = retry.Do(ctx, "probe "+target, func(int) error {
		reqCtx, cancel := context.WithTimeout(ctx, v.opts.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, target, nil)
		if err != nil {
			return nil
		}
		resp, err := v.opts.Client.Do(req)
		if err != nil {
			return eris.Wrap(errProbeInconclusive, err.Error())
		}
		resp.Body.Close()
		status = resp.StatusCode
		if status >= http.StatusInternalServerError {
			return eris.Wrapf(errProbeInconclusive, "status %d", status)
		}
		return nil
	})

	if status == http.StatusNotFound || status == http.StatusGone {
		v.logger.Debug("[validate] %s returned %d, dropping", target, status)
		return true
	}
	return false
}
