package session

import (
	"fmt"
	"time"

	"cpsys/internal"
	"cpsys/models"
	"cpsys/types"
)

// Authorizer decides whether an id tag may start or continue a transaction.
type Authorizer interface {
	Authorize(idTag string) (*types.IdTagInfo, error)
}

// TagAuthorizer resolves id tags against the user tag store. Unknown tags are
// either rejected or auto-registered and accepted, depending on configuration.
type TagAuthorizer struct {
	database         internal.Database
	logger           internal.LogHandler
	acceptUnknownTag bool
}

func NewTagAuthorizer(database internal.Database, logger internal.LogHandler, acceptUnknownTag bool) *TagAuthorizer {
	return &TagAuthorizer{
		database:         database,
		logger:           logger,
		acceptUnknownTag: acceptUnknownTag,
	}
}

func (a *TagAuthorizer) Authorize(idTag string) (*types.IdTagInfo, error) {
	if idTag == "" {
		return types.NewIdTagInfo(types.AuthorizationStatusInvalid), nil
	}
	if a.database == nil {
		return types.NewIdTagInfo(types.AuthorizationStatusAccepted), nil
	}
	userTag, err := a.database.GetUserTag(idTag)
	if err != nil {
		return nil, fmt.Errorf("reading tag %s: %w", idTag, err)
	}
	if userTag == nil {
		if !a.acceptUnknownTag {
			a.logger.Warn(fmt.Sprintf("unknown tag rejected: %s", idTag))
			return types.NewIdTagInfo(types.AuthorizationStatusInvalid), nil
		}
		userTag = &models.UserTag{
			IdTag:          idTag,
			Source:         "auto",
			IsEnabled:      true,
			DateRegistered: time.Now(),
		}
		if err = a.database.AddUserTag(userTag); err != nil {
			a.logger.Error(fmt.Sprintf("registering tag %s", idTag), err)
		}
	}
	if !userTag.IsEnabled {
		return types.NewIdTagInfo(types.AuthorizationStatusBlocked), nil
	}
	if userTag.ExpiryDate != nil && userTag.ExpiryDate.Before(time.Now()) {
		return types.NewIdTagInfo(types.AuthorizationStatusExpired), nil
	}
	info := types.NewIdTagInfo(types.AuthorizationStatusAccepted)
	if userTag.ExpiryDate != nil {
		info.ExpiryDate = types.NewDateTime(*userTag.ExpiryDate)
	}
	return info, nil
}
