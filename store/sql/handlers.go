package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func pendingCheckoutHandlers() repository.ModelHandlers[*pendingCheckoutRecord] {
	return repository.ModelHandlers[*pendingCheckoutRecord]{
		NewRecord: func() *pendingCheckoutRecord {
			return &pendingCheckoutRecord{}
		},
		GetID: func(record *pendingCheckoutRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *pendingCheckoutRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "nonce"
		},
		GetIdentifierValue: func(record *pendingCheckoutRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.Nonce)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
