// Package estimator runs the external price-prediction model
package estimator

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"realestate/internal/services/cache"
)

// maxOutputBytes bounds what is read from the model's stdout
const maxOutputBytes = 64 << 10

// ErrEstimatorFailed wraps every failure of the external model
var ErrEstimatorFailed = errors.New("estimator failed")

// Features are the model inputs, e.g. area_sqft, bedrooms, city
type Features map[string]any

// Estimator predicts a value from features
type Estimator interface {
	Estimate(ctx context.Context, features Features) (float64, error)
}

type response struct {
	Prediction *float64 `json:"prediction"`
	Error      string   `json:"error"`
}

// Process spawns Command once per call, writes the features as JSON to its
// stdin and reads {"prediction": n} or {"error": "..."} from its stdout
type Process struct {
	Command string
	Args    []string
	Timeout time.Duration
}

func (p *Process) Estimate(ctx context.Context, features Features) (float64, error) {
	if p.Command == "" {
		return 0, fmt.Errorf("%w: no command configured", ErrEstimatorFailed)
	}
	payload, err := json.Marshal(features)
	if err != nil {
		return 0, fmt.Errorf("%w: encoding features: %v", ErrEstimatorFailed, err)
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, p.Command, p.Args...) //nolint:gosec // command comes from server config
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &stdout, n: maxOutputBytes}
	cmd.Stderr = &limitedWriter{w: &stderr, n: maxOutputBytes}
	cmd.WaitDelay = time.Second

	start := time.Now()
	runErr := cmd.Run()
	slog.Debug("estimator finished", "duration", time.Since(start), "error", runErr)

	if ctx.Err() != nil {
		return 0, fmt.Errorf("%w: %v", ErrEstimatorFailed, ctx.Err())
	}
	if runErr != nil {
		return 0, fmt.Errorf("%w: %v: %s", ErrEstimatorFailed, runErr, strings.TrimSpace(stderr.String()))
	}

	var resp response
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &resp); err != nil {
		return 0, fmt.Errorf("%w: malformed output: %v", ErrEstimatorFailed, err)
	}
	if resp.Error != "" {
		return 0, fmt.Errorf("%w: %s", ErrEstimatorFailed, resp.Error)
	}
	if resp.Prediction == nil || math.IsNaN(*resp.Prediction) || math.IsInf(*resp.Prediction, 0) {
		return 0, fmt.Errorf("%w: missing prediction", ErrEstimatorFailed)
	}
	return *resp.Prediction, nil
}

// limitedWriter discards bytes past n without failing the child process
type limitedWriter struct {
	w io.Writer
	n int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if l.n <= 0 {
		return len(p), nil
	}
	keep := p
	if len(keep) > l.n {
		keep = keep[:l.n]
	}
	n, err := l.w.Write(keep)
	l.n -= n
	if err != nil {
		return n, err
	}
	return len(p), nil
}

// Cached memoizes an Estimator by the SHA-256 of the canonical feature JSON
type Cached struct {
	next  Estimator
	cache cache.Cache
	ttl   time.Duration
}

// NewCached wraps next with c
func NewCached(next Estimator, c cache.Cache, ttl time.Duration) *Cached {
	return &Cached{next: next, cache: c, ttl: ttl}
}

func (c *Cached) Estimate(ctx context.Context, features Features) (float64, error) {
	key, err := Key(features)
	if err != nil {
		return c.next.Estimate(ctx, features)
	}

	if v, ok := c.cache.Get(ctx, key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, nil
		}
	}

	value, err := c.next.Estimate(ctx, features)
	if err != nil {
		return 0, err
	}
	if err := c.cache.Set(ctx, key, strconv.FormatFloat(value, 'g', -1, 64), c.ttl); err != nil {
		slog.Warn("caching estimate", "error", err)
	}
	return value, nil
}

// Key returns the cache key for features. encoding/json sorts map keys, so
// equal feature sets produce equal keys.
func Key(features Features) (string, error) {
	data, err := json.Marshal(features)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return "estimate:" + hex.EncodeToString(sum[:]), nil
}
