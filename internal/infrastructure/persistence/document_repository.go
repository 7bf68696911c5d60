package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/salonerp/backend/internal/domain/shared"
	"github.com/salonerp/backend/internal/domain/stock"
	"gorm.io/gorm"
)

// GormDocumentRepository implements stock.DocumentRepository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// FindByID finds a document with its lines
func (r *GormDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.Document, error) {
	var doc stock.Document
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// FindByDocNo finds a document by its number
func (r *GormDocumentRepository) FindByDocNo(ctx context.Context, docNo string) (*stock.Document, error) {
	var doc stock.Document
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("doc_no = ?", docNo).
		First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// FindBySite lists documents for a site, newest first
func (r *GormDocumentRepository) FindBySite(ctx context.Context, siteCode string, kind stock.MovementKind, limit int) ([]stock.Document, error) {
	var docs []stock.Document
	query := r.db.WithContext(ctx).
		Preload("Lines").
		Where("site_code = ?", siteCode)
	if kind != "" {
		query = query.Where("movement_kind = ?", kind)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Order("created_at DESC").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// Save creates or updates a document with its lines. Lines removed from the
// working set since the last save are deleted.
func (r *GormDocumentRepository) Save(ctx context.Context, doc *stock.Document) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Save(doc).Error; err != nil {
			return err
		}

		currentLineIDs := make([]uuid.UUID, len(doc.Lines))
		for i := range doc.Lines {
			currentLineIDs[i] = doc.Lines[i].ID
		}

		if len(currentLineIDs) > 0 {
			if err := tx.Where("document_id = ? AND id NOT IN ?", doc.ID, currentLineIDs).
				Delete(&stock.DocumentLine{}).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Where("document_id = ?", doc.ID).
				Delete(&stock.DocumentLine{}).Error; err != nil {
				return err
			}
		}

		for i := range doc.Lines {
			doc.Lines[i].DocumentID = doc.ID
			if err := tx.Save(&doc.Lines[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete deletes a document and its lines
func (r *GormDocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).
			Delete(&stock.DocumentLine{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&stock.Document{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// NextDocumentNumber reserves the next number in the kind's sequence.
// Format: PREFIX-NNNNNN (e.g. GRN-000001).
func (r *GormDocumentRepository) NextDocumentNumber(ctx context.Context, kind stock.MovementKind) (string, error) {
	prefix := kind.DocPrefix() + "-"

	var lastDoc stock.Document
	err := r.db.WithContext(ctx).
		Where("doc_no LIKE ?", prefix+"%").
		Order("doc_no DESC").
		First(&lastDoc).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var nextNum int64 = 1
	if err == nil && lastDoc.DocNo != "" {
		if num, parseErr := strconv.ParseInt(strings.TrimPrefix(lastDoc.DocNo, prefix), 10, 64); parseErr == nil {
			nextNum = num + 1
		}
	}

	docNo := fmt.Sprintf("%s%06d", prefix, nextNum)

	// Retry past stragglers when a concurrent reservation won the number
	for i := 0; i < 100; i++ {
		exists, err := r.existsByDocNo(ctx, docNo)
		if err != nil {
			return "", err
		}
		if !exists {
			break
		}
		nextNum++
		docNo = fmt.Sprintf("%s%06d", prefix, nextNum)
	}

	return docNo, nil
}

// existsByDocNo checks if a document number is already taken
func (r *GormDocumentRepository) existsByDocNo(ctx context.Context, docNo string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&stock.Document{}).
		Where("doc_no = ?", docNo).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Ensure GormDocumentRepository implements stock.DocumentRepository
var _ stock.DocumentRepository = (*GormDocumentRepository)(nil)
