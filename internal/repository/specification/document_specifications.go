package specification

import (
	"strings"

	"gorm.io/gorm"
)

// FileNameContains matches documents whose file name contains Term, case-insensitively.
type FileNameContains struct {
	Term string
}

func (s FileNameContains) Apply(db *gorm.DB) *gorm.DB {
	if strings.TrimSpace(s.Term) == "" {
		return db
	}
	return db.Where("file_name ILIKE ?", "%"+strings.TrimSpace(s.Term)+"%")
}
