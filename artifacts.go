package mastermap

import (
	"context"
	"slices"
	"strings"

	"github.com/agentstation/mastermap/pkg/blob"
	"github.com/agentstation/mastermap/pkg/constants"
	"github.com/agentstation/mastermap/pkg/errors"
	"github.com/agentstation/mastermap/pkg/issues"
	"github.com/agentstation/mastermap/pkg/logging"
	"github.com/agentstation/mastermap/pkg/resolution"
)

// ReportKey returns the key of the pending report for prefix.
func ReportKey(prefix string) string {
	return blob.NormalizePrefix(prefix) + constants.PendingReportName
}

// ResolutionsKey returns the key of the resolution document for prefix.
func ResolutionsKey(prefix string) string {
	return blob.NormalizePrefix(prefix) + constants.ResolutionsName
}

// CandidatePrefixes returns the prefixes searched for stale artifacts: the
// namespace itself, its parent and, when the namespace lies below a
// "sourcedata/" segment, the prefix ending at that segment.
func CandidatePrefixes(namespace string) []string {
	base := blob.NormalizePrefix(namespace)
	out := []string{base}
	if trimmed := strings.TrimSuffix(base, "/"); strings.Contains(trimmed, "/") {
		out = append(out, trimmed[:strings.LastIndex(trimmed, "/")+1])
	}
	if i := strings.Index(base, constants.SourceDataSegment); i >= 0 {
		out = append(out, base[:i+len(constants.SourceDataSegment)])
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func isArtifact(key string) bool {
	return strings.HasSuffix(key, constants.PendingReportName) ||
		strings.HasSuffix(key, constants.ResolutionsName)
}

// claimResolution loads the resolution document and deletes it before it is
// applied, so a crash after the claim can never apply it twice. It returns
// nil when there is nothing to apply.
func (m *mastermap) claimResolution(ctx context.Context) *resolution.Document {
	logger := logging.FromContext(ctx)
	key := ResolutionsKey(m.config.namespace)

	data, err := m.config.blobs.Get(ctx, key)
	if errors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("failed to read resolutions, validating without them")
		return nil
	}

	if err := m.config.blobs.Delete(ctx, key); err != nil {
		if errors.IsNotFound(err) {
			logger.Info().Str("key", key).Msg("resolutions already claimed by another run")
		} else {
			logger.Warn().Err(err).Str("key", key).Msg("failed to claim resolutions, not applying them")
		}
		return nil
	}

	doc, err := resolution.Parse(data)
	if err != nil {
		logger.Error().Err(err).Str("key", key).Msg("discarding unreadable resolutions")
		return nil
	}
	logger.Info().Str("key", key).Int("fixes", doc.Resolutions.Len()).Msg("resolutions claimed")
	return doc
}

// writeReport persists the pending report, replacing any previous one.
func (m *mastermap) writeReport(ctx context.Context, report *issues.Report) (string, error) {
	key := ReportKey(m.config.namespace)
	data, err := report.Marshal()
	if err != nil {
		return "", err
	}
	if err := m.config.blobs.Put(ctx, key, data); err != nil {
		return "", err
	}
	return key, nil
}

// deleteReport removes the pending report of the namespace, if any.
func (m *mastermap) deleteReport(ctx context.Context) {
	key := ReportKey(m.config.namespace)
	if err := m.config.blobs.Delete(ctx, key); err != nil && !errors.IsNotFound(err) {
		logging.FromContext(ctx).Warn().Err(err).Str("key", key).Msg("failed to delete stale report")
	}
}

// Cleanup deletes every pending report and resolution document under the
// candidate prefixes of the namespace. Failures are logged and skipped.
func (m *mastermap) Cleanup(ctx context.Context) ([]string, error) {
	logger := logging.FromContext(ctx)
	var deleted []string
	seen := make(map[string]bool)

	for _, prefix := range CandidatePrefixes(m.config.namespace) {
		keys, err := m.config.blobs.List(ctx, prefix)
		if err != nil {
			logger.Warn().Err(err).Str("prefix", prefix).Msg("failed to list artifacts")
			continue
		}
		for _, key := range keys {
			if !isArtifact(key) || seen[key] {
				continue
			}
			seen[key] = true
			if err := m.config.blobs.Delete(ctx, key); err != nil && !errors.IsNotFound(err) {
				logger.Warn().Err(err).Str("key", key).Msg("failed to delete artifact")
				continue
			}
			deleted = append(deleted, key)
		}
	}
	if len(deleted) > 0 {
		logger.Info().Strs("keys", deleted).Msg("validation artifacts cleaned up")
	}
	return deleted, nil
}

// PendingReport loads the pending report of the namespace.
func (m *mastermap) PendingReport(ctx context.Context) (*issues.Report, error) {
	data, err := m.config.blobs.Get(ctx, ReportKey(m.config.namespace))
	if err != nil {
		return nil, err
	}
	return issues.ParseReport(data)
}

// SubmitResolution uploads a resolution document for the next run to apply.
// A document that no run has claimed yet is never overwritten.
func (m *mastermap) SubmitResolution(ctx context.Context, doc *resolution.Document) (string, error) {
	if doc == nil || doc.Resolutions.Len() == 0 {
		return "", errors.NewValidationError("resolutions", nil, "document has no fixes")
	}
	data, err := doc.Marshal()
	if err != nil {
		return "", err
	}
	key := ResolutionsKey(m.config.namespace)
	pending, err := blob.Exists(ctx, m.config.blobs, key)
	if err != nil {
		return "", err
	}
	if pending {
		return "", errors.NewAlreadyExistsError("resolutions", key)
	}
	if err := m.config.blobs.Put(ctx, key, data); err != nil {
		return "", err
	}
	return key, nil
}

// WithdrawResolution deletes the resolution document before a run claims it.
// It reports whether there was one.
func (m *mastermap) WithdrawResolution(ctx context.Context) (bool, error) {
	err := m.config.blobs.Delete(ctx, ResolutionsKey(m.config.namespace))
	if errors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
