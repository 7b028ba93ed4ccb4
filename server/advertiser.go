package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/maxpert/saslmechs/auth"
	"github.com/maxpert/saslmechs/errors"
	"github.com/maxpert/saslmechs/metrics"
	"go.uber.org/zap"
)

// SupportedMechsField is the command and reply field carrying the principal and its mechanisms
const SupportedMechsField = "saslSupportedMechs"

// SASLMechanismAdvertiser answers saslSupportedMechs requests for pre-authentication handshakes
type SASLMechanismAdvertiser struct {
	Directory       auth.UserDirectory
	Mechanisms      auth.MechanismSet
	DefaultDatabase string
	Command         string
	Log             *zap.Logger
	Metrics         *metrics.Collector
}

// Advertise inspects cmd for saslSupportedMechs and, when present, writes the
// mechanisms the named principal may use into reply. A missing field leaves
// reply untouched. Malformed names and lookup failures are returned as errors
// and nothing is written.
func (a *SASLMechanismAdvertiser) Advertise(ctx context.Context, cmd map[string]interface{}, reply map[string]interface{}) error {
	raw, present := cmd[SupportedMechsField]
	if !present {
		a.Metrics.RecordAdvertisement(metrics.ResultSkipped, nil)
		return nil
	}

	mechanisms, err := a.mechanismsFor(ctx, raw)
	if err != nil {
		a.Metrics.RecordAdvertisement(metrics.ResultError, nil)
		return err
	}

	result := metrics.ResultAdvertised
	if len(mechanisms) == 0 {
		result = metrics.ResultEmpty
	}
	a.Metrics.RecordAdvertisement(result, mechanisms)

	reply[SupportedMechsField] = mechanisms
	return nil
}

func (a *SASLMechanismAdvertiser) mechanismsFor(ctx context.Context, raw interface{}) ([]string, error) {
	principal, ok := raw.(string)
	if !ok {
		return nil, errors.NewTypeMismatch(a.Command, SupportedMechsField, "string", fmt.Sprintf("%T", raw))
	}

	name, err := auth.ParseUserName(principal, a.DefaultDatabase)
	if err != nil {
		return nil, errors.NewFailedToParse(a.Command, SupportedMechsField, err)
	}

	creds, err := a.lookup(ctx, name)
	if err != nil {
		return nil, err
	}

	mechanisms := auth.Advertise(creds, a.Mechanisms)
	a.logger().Debug("Advertising SASL mechanisms",
		zap.String("user", name.User),
		zap.String("db", name.DB),
		zap.Strings("mechanisms", mechanisms))

	return mechanisms, nil
}

// lookup acquires the principal and releases the handle once the credentials are extracted
func (a *SASLMechanismAdvertiser) lookup(ctx context.Context, name auth.UserName) (auth.Credentials, error) {
	if a.Directory == nil {
		return nil, errors.NewLookupFailed(a.Command, name.String(), fmt.Errorf("no user directory configured"))
	}

	start := time.Now()
	handle, err := a.Directory.Acquire(ctx, name)
	a.Metrics.ObserveLookup(time.Since(start))
	if err != nil {
		a.logger().Warn("Failed to acquire user for mechanism advertisement",
			zap.String("user", name.User),
			zap.String("db", name.DB),
			zap.Error(err))
		if stderrors.Is(err, auth.ErrUserNotFound) {
			return nil, errors.NewUserNotFound(a.Command, name.String(), err)
		}
		return nil, errors.NewLookupFailed(a.Command, name.String(), err)
	}
	a.Metrics.LeaseAcquired()
	defer func() {
		handle.Release()
		a.Metrics.LeaseReleased()
	}()

	creds, err := handle.Credentials()
	if err != nil {
		return nil, errors.NewLookupFailed(a.Command, name.String(), err)
	}
	return creds, nil
}

func (a *SASLMechanismAdvertiser) logger() *zap.Logger {
	if a.Log == nil {
		return zap.NewNop()
	}
	return a.Log
}
