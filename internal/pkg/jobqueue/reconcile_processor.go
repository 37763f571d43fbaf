package jobqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/memorizu/memorizu/internal/pkg/database"
	"github.com/memorizu/memorizu/internal/pkg/payment"
)

// processPublicationReconcileJob re-checks the payment provider for a page
// whose checkout was started but never confirmed, and publishes it when a
// matching succeeded charge shows up. Pages without a charge yet stay
// retryable; pages that can never publish fail permanently.
func (q *Queue) processPublicationReconcileJob(ctx context.Context, job *Job) error {
	payload, err := PublicationReconcileJobPayloadFromMap(job.Payload)
	if err != nil {
		// Malformed payload can never succeed
		job.RetryCount = job.MaxRetries
		return fmt.Errorf("invalid reconcile payload: %w", err)
	}

	svc := payment.NewServiceFromDB(database.GetDB())
	page, _, err := svc.VerifyAndPublish(ctx, payload.UserID, payload.PageUUID)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrNoMatchingCharge), errors.Is(err, payment.ErrNoCustomer):
			// Payment may simply not have completed yet; retry later
			return err
		case errors.Is(err, payment.ErrUserNotFound), errors.Is(err, payment.ErrPageNotFound):
			// Gone for good, stop retrying
			job.RetryCount = job.MaxRetries
			return err
		default:
			return err
		}
	}

	log.Infof("[JobQueue] Reconciled page %s for user %d (published=%t)", page.UUID, payload.UserID, page.Published)
	return nil
}
