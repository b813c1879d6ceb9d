package accounting

import (
	"errors"
	"fmt"
	"testing"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/stretchr/testify/assert"
)

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantType   accounting.UnmappedEntityType
		wantEntity string
	}{
		{
			name:       "missing mapping names the entity",
			err:        fmt.Errorf("resolve: %w", accounting.NewMissingMappingError(accounting.EntityTaxGroup, "tg-1")),
			wantType:   accounting.EntityTaxGroup,
			wantEntity: "tg-1",
		},
		{
			name:       "too few lines is a configuration problem",
			err:        &insufficientLinesError{count: 1},
			wantType:   accounting.EntityConfiguration,
			wantEntity: "tender-9",
		},
		{
			name:       "anything else is a journal failure",
			err:        errors.New("database is locked"),
			wantType:   accounting.EntityJournal,
			wantEntity: "tender-9",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotEntity := classifyFailure(tt.err, "tender-9")
			assert.Equal(t, tt.wantType, gotType)
			assert.Equal(t, tt.wantEntity, gotEntity)
		})
	}
	assert.EqualError(t, &insufficientLinesError{count: 1}, "posting produced 1 journal lines, at least 2 are required")
}
