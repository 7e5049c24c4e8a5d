package workspaces

import (
	"context"
	"time"

	backoff "github.com/cenkalti/backoff/v5"
	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/NimbleBrainInc/nimbletools-core/pkg/errors"
)

const maxRetries = 4

// retryTransient retries an operation on transient cluster-API
// failures. Anything else aborts immediately.
func retryTransient[T any](ctx context.Context, op func() (T, error)) (T, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 200 * time.Millisecond

	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !isTransientClusterError(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(expBackoff), backoff.WithMaxTries(maxRetries))
}

func isTransientClusterError(err error) bool {
	return apierrors.IsServerTimeout(err) ||
		apierrors.IsTimeout(err) ||
		apierrors.IsTooManyRequests(err) ||
		apierrors.IsInternalError(err) ||
		apierrors.IsServiceUnavailable(err)
}

// clusterError classifies a cluster-API failure for the HTTP layer:
// transient outages surface as 503, everything else as 500.
func clusterError(message string, err error) error {
	if isTransientClusterError(err) {
		return errors.NewTransientError(message, err)
	}
	return errors.NewInternalError(message, err)
}
