package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/ff-affiliate-migrator/internal/domain"
	"github.com/feral-file/ff-affiliate-migrator/internal/store/schema"
)

// Number of columns written per row, used to size bulk inserts
const (
	metaFields              = 7
	affiliateFields         = 18
	referralFields          = 22
	customerFields          = 10
	visitFields             = 12
	payoutTransactionFields = 10
)

// affiliateEarnings is the referral aggregate of one affiliate
type affiliateEarnings struct {
	Total     decimal.Decimal
	Unpaid    decimal.Decimal
	Referrals int64
}

type sqlStore struct {
	db *gorm.DB
}

// NewSQLStore creates a new store on top of a gorm connection.
// MySQL, PostgreSQL and SQLite dialectors are supported.
func NewSQLStore(db *gorm.DB) Store {
	return &sqlStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// If any of the pool settings are 0 or empty, reasonable defaults are used:
//   - MaxOpenConns: 20 (if 0)
//   - MaxIdleConns: 5 (if 0)
//   - ConnMaxLifetime: 5 minutes (if 0)
//   - ConnMaxIdleTime: 10 minutes (if 0)
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Notes:
//   - database/sql treats MaxOpenConns=0 as "unlimited"
//   - database/sql treats MaxIdleConns=0 as "no idle connections"
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// Ensure MaxIdleConns doesn't exceed MaxOpenConns
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// calculateSafeBatchSize computes the batch size for bulk inserts so a single statement
// stays under the bound parameter limit of every supported database.
// SQLite has the lowest limit (32766), MySQL and PostgreSQL allow 65535.
func calculateSafeBatchSize(totalRecords int, fieldsPerRecord int) int {
	const maxParams = 32766
	const totalHeadroom = 1000 // Total parameter headroom for batch-level overhead

	availableParams := maxParams - totalHeadroom
	safeBatchSize := max(availableParams/fieldsPerRecord, 1)

	if safeBatchSize > totalRecords {
		return totalRecords
	}

	return safeBatchSize
}

// insertIgnoringConflicts bulk inserts rows and silently skips rows whose primary
// or unique keys already exist, which keeps re-running a batch harmless
func insertIgnoringConflicts[T any](ctx context.Context, db *gorm.DB, rows []T, fieldsPerRecord int) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&rows, calculateSafeBatchSize(len(rows), fieldsPerRecord))
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

// AutoMigrate creates or updates the target tables
func (s *sqlStore) AutoMigrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(schema.Models()...); err != nil {
		return fmt.Errorf("failed to migrate target schema: %w", err)
	}
	return nil
}

// WithTransaction runs fn against a store bound to a single database transaction
func (s *sqlStore) WithTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&sqlStore{db: tx})
	})
}

// SyncSequences moves PostgreSQL serial sequences past the highest ID of every target table.
// Explicit IDs inserted during migration do not advance the sequences on their own.
func (s *sqlStore) SyncSequences(ctx context.Context) error {
	if s.db.Dialector.Name() != "postgres" {
		return nil
	}

	for _, model := range schema.Models() {
		tabler, ok := model.(interface{ TableName() string })
		if !ok {
			continue
		}
		table := tabler.TableName()
		if table == (schema.KeyValueStore{}).TableName() {
			continue
		}
		if err := syncSequence(ctx, s.db, table); err != nil {
			return err
		}
	}

	return nil
}

// syncSequence moves the serial sequence of a PostgreSQL table past its highest ID.
// The sequence never moves backwards.
func syncSequence(ctx context.Context, db *gorm.DB, table string) error {
	query := fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), "+
			"GREATEST(COALESCE((SELECT MAX(id) FROM %[1]s), 0) + 1, nextval(pg_get_serial_sequence('%[1]s', 'id'))), false)",
		table)
	if err := db.WithContext(ctx).Exec(query).Error; err != nil {
		return fmt.Errorf("failed to sync sequence of %s: %w", table, err)
	}
	return nil
}

// ResetMigration removes migrated target rows and the progress document in one transaction.
// User records are host data and are kept.
func (s *sqlStore) ResetMigration(ctx context.Context, source domain.Source) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		models := []any{
			&schema.Referral{},
			&schema.PayoutTransaction{},
			&schema.Payout{},
			&schema.Customer{},
			&schema.Visit{},
			&schema.Affiliate{},
		}
		for _, model := range models {
			if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
				return fmt.Errorf("failed to truncate %T: %w", model, err)
			}
		}

		if err := tx.Where("object_type = ?", domain.MetaObjectAffiliateGroup).Delete(&schema.Meta{}).Error; err != nil {
			return fmt.Errorf("failed to truncate affiliate groups: %w", err)
		}

		if err := tx.Where(&schema.KeyValueStore{Key: statusKey(source)}).Delete(&schema.KeyValueStore{}).Error; err != nil {
			return fmt.Errorf("failed to clear migration status: %w", err)
		}

		return nil
	})
}

// GetUserByEmail retrieves a user by email
func (s *sqlStore) GetUserByEmail(ctx context.Context, email string) (*schema.User, error) {
	var user schema.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID
func (s *sqlStore) GetUserByID(ctx context.Context, id int64) (*schema.User, error) {
	var user schema.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// CreateUser inserts a new user record. A user keeping its source ID moves the
// PostgreSQL users sequence past it, so later generated IDs cannot collide.
func (s *sqlStore) CreateUser(ctx context.Context, user *schema.User) error {
	explicit := user.ID != 0
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	if explicit && s.db.Dialector.Name() == "postgres" {
		return syncSequence(ctx, s.db, (schema.User{}).TableName())
	}
	return nil
}

// InsertAffiliateGroups inserts affiliate group meta rows
func (s *sqlStore) InsertAffiliateGroups(ctx context.Context, groups []schema.Meta) (int64, error) {
	n, err := insertIgnoringConflicts(ctx, s.db, groups, metaFields)
	if err != nil {
		return 0, fmt.Errorf("failed to insert affiliate groups: %w", err)
	}
	return n, nil
}

// InsertAffiliates inserts affiliates
func (s *sqlStore) InsertAffiliates(ctx context.Context, affiliates []schema.Affiliate) (int64, error) {
	n, err := insertIgnoringConflicts(ctx, s.db, affiliates, affiliateFields)
	if err != nil {
		return 0, fmt.Errorf("failed to insert affiliates: %w", err)
	}
	return n, nil
}

// InsertReferrals inserts referrals
func (s *sqlStore) InsertReferrals(ctx context.Context, referrals []schema.Referral) (int64, error) {
	n, err := insertIgnoringConflicts(ctx, s.db, referrals, referralFields)
	if err != nil {
		return 0, fmt.Errorf("failed to insert referrals: %w", err)
	}
	return n, nil
}

// InsertCustomers inserts customers. Rows colliding on email are skipped.
func (s *sqlStore) InsertCustomers(ctx context.Context, customers []schema.Customer) (int64, error) {
	n, err := insertIgnoringConflicts(ctx, s.db, customers, customerFields)
	if err != nil {
		return 0, fmt.Errorf("failed to insert customers: %w", err)
	}
	return n, nil
}

// InsertVisits inserts visits
func (s *sqlStore) InsertVisits(ctx context.Context, visits []schema.Visit) (int64, error) {
	n, err := insertIgnoringConflicts(ctx, s.db, visits, visitFields)
	if err != nil {
		return 0, fmt.Errorf("failed to insert visits: %w", err)
	}
	return n, nil
}

// EnsurePayout returns the ID of the payout with the same reference, creating it when absent
func (s *sqlStore) EnsurePayout(ctx context.Context, payout *schema.Payout) (int64, error) {
	if payout.Reference != nil {
		var existing schema.Payout
		err := s.db.WithContext(ctx).Where("reference = ?", *payout.Reference).First(&existing).Error
		if err == nil {
			return existing.ID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("failed to get payout: %w", err)
		}
	}

	if err := s.db.WithContext(ctx).Create(payout).Error; err != nil {
		return 0, fmt.Errorf("failed to create payout: %w", err)
	}

	return payout.ID, nil
}

// InsertPayoutTransactions inserts payout transactions
func (s *sqlStore) InsertPayoutTransactions(ctx context.Context, transactions []schema.PayoutTransaction) (int64, error) {
	n, err := insertIgnoringConflicts(ctx, s.db, transactions, payoutTransactionFields)
	if err != nil {
		return 0, fmt.Errorf("failed to insert payout transactions: %w", err)
	}
	return n, nil
}

// ListCustomers returns customers with ID greater than afterID ordered by ID
func (s *sqlStore) ListCustomers(ctx context.Context, afterID int64, limit int) ([]schema.Customer, error) {
	var customers []schema.Customer
	err := s.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&customers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, nil
}

// LinkCustomerReferrals sets customer_id on the given referrals that have none
func (s *sqlStore) LinkCustomerReferrals(ctx context.Context, customerID int64, referralIDs []int64) (int64, error) {
	if len(referralIDs) == 0 {
		return 0, nil
	}

	result := s.db.WithContext(ctx).
		Model(&schema.Referral{}).
		Where("id IN ? AND customer_id IS NULL", referralIDs).
		Update("customer_id", customerID)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to link customer referrals: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// ListReferralsWithoutVisit returns referrals with no visit ordered by ID
func (s *sqlStore) ListReferralsWithoutVisit(ctx context.Context, afterID int64, limit int) ([]schema.Referral, error) {
	var referrals []schema.Referral
	err := s.db.WithContext(ctx).
		Where("visit_id IS NULL AND id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&referrals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list referrals without visit: %w", err)
	}
	return referrals, nil
}

// GetReferralByProviderID returns the first referral carrying the provider order ID
func (s *sqlStore) GetReferralByProviderID(ctx context.Context, providerID string) (*schema.Referral, error) {
	var referral schema.Referral
	err := s.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("id ASC").
		First(&referral).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get referral by provider id: %w", err)
	}
	return &referral, nil
}

// FindLatestUnlinkedVisit returns the affiliate's most recent visit without a referral
// created at or before the given time
func (s *sqlStore) FindLatestUnlinkedVisit(ctx context.Context, affiliateID int64, before time.Time) (*schema.Visit, error) {
	var visit schema.Visit
	err := s.db.WithContext(ctx).
		Where("affiliate_id = ? AND referral_id IS NULL AND created_at <= ?", affiliateID, before).
		Order("created_at DESC, id DESC").
		First(&visit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find visit: %w", err)
	}
	return &visit, nil
}

// errLinkTaken rolls back a visit link when one side was claimed in the meantime
var errLinkTaken = errors.New("link already taken")

// LinkVisitReferral links a visit and a referral in both directions.
// A side already pointing elsewhere blocks the link, so both rows always agree.
// Nothing happens when either row is missing.
func (s *sqlStore) LinkVisitReferral(ctx context.Context, visitID, referralID int64) (bool, error) {
	linked := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var visit schema.Visit
		if err := tx.Where("id = ?", visitID).Limit(1).Find(&visit).Error; err != nil {
			return err
		}
		var referral schema.Referral
		if err := tx.Where("id = ?", referralID).Limit(1).Find(&referral).Error; err != nil {
			return err
		}
		if visit.ID == 0 || referral.ID == 0 {
			return nil
		}

		if visit.ReferralID != nil && *visit.ReferralID != referralID {
			return nil
		}
		if referral.VisitID != nil && *referral.VisitID != visitID {
			return nil
		}
		if visit.ReferralID != nil && referral.VisitID != nil {
			return nil
		}

		if referral.VisitID == nil {
			r := tx.Model(&schema.Referral{}).
				Where("id = ? AND visit_id IS NULL", referralID).
				Update("visit_id", visitID)
			if r.Error != nil {
				return r.Error
			}
			if r.RowsAffected == 0 {
				return errLinkTaken
			}
		}

		if visit.ReferralID == nil {
			v := tx.Model(&schema.Visit{}).
				Where("id = ? AND referral_id IS NULL", visitID).
				Update("referral_id", referralID)
			if v.Error != nil {
				return v.Error
			}
			if v.RowsAffected == 0 {
				return errLinkTaken
			}
		}

		linked = true
		return nil
	})
	if errors.Is(err, errLinkTaken) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to link visit %d to referral %d: %w", visitID, referralID, err)
	}

	return linked, nil
}

// ListPayoutTransactions returns transactions after the cursor, oldest first
func (s *sqlStore) ListPayoutTransactions(ctx context.Context, after PayoutCursor, limit int) ([]schema.PayoutTransaction, error) {
	var transactions []schema.PayoutTransaction
	err := s.db.WithContext(ctx).
		Where("created_at > ? OR (created_at = ? AND id > ?)", after.CreatedAt, after.CreatedAt, after.ID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&transactions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payout transactions: %w", err)
	}
	return transactions, nil
}

// LinkPayoutReferrals assigns unpaid referrals to a payout transaction and marks them paid
func (s *sqlStore) LinkPayoutReferrals(ctx context.Context, transaction schema.PayoutTransaction, referralIDs []int64) (int64, error) {
	query := s.db.WithContext(ctx).
		Model(&schema.Referral{}).
		Where("affiliate_id = ? AND payout_id IS NULL AND status = ?", transaction.AffiliateID, domain.ReferralStatusUnpaid)

	if referralIDs != nil {
		if len(referralIDs) == 0 {
			return 0, nil
		}
		query = query.Where("id IN ?", referralIDs)
	} else {
		query = query.Where("created_at <= ?", transaction.CreatedAt)
	}

	result := query.Updates(map[string]any{
		"payout_id":             transaction.PayoutID,
		"payout_transaction_id": transaction.ID,
		"status":                domain.ReferralStatusPaid,
	})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to link payout referrals: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// RecountPayoutTotals sets every payout total to the sum of its transactions
func (s *sqlStore) RecountPayoutTotals(ctx context.Context) error {
	err := s.db.WithContext(ctx).Exec(
		"UPDATE fa_payouts SET total_amount = (" +
			"SELECT COALESCE(SUM(t.total_amount), 0) FROM fa_payout_transactions t WHERE t.payout_id = fa_payouts.id)",
	).Error
	if err != nil {
		return fmt.Errorf("failed to recount payout totals: %w", err)
	}
	return nil
}

// ListAffiliateIDs returns affiliate IDs greater than afterID in ascending order
func (s *sqlStore) ListAffiliateIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).
		Model(&schema.Affiliate{}).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list affiliate ids: %w", err)
	}
	return ids, nil
}

// RecountAffiliateEarnings recomputes earnings and counters of one affiliate.
// total_earnings sums paid and unpaid referrals, unpaid_earnings only unpaid ones.
func (s *sqlStore) RecountAffiliateEarnings(ctx context.Context, affiliateID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var earnings affiliateEarnings
		err := tx.Model(&schema.Referral{}).
			Select("COALESCE(SUM(CASE WHEN status IN (?, ?) THEN amount ELSE 0 END), 0) AS total, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN amount ELSE 0 END), 0) AS unpaid, "+
				"COUNT(*) AS referrals",
				domain.ReferralStatusPaid, domain.ReferralStatusUnpaid, domain.ReferralStatusUnpaid).
			Where("affiliate_id = ?", affiliateID).
			Scan(&earnings).Error
		if err != nil {
			return fmt.Errorf("failed to sum referrals: %w", err)
		}

		var visits int64
		if err := tx.Model(&schema.Visit{}).Where("affiliate_id = ?", affiliateID).Count(&visits).Error; err != nil {
			return fmt.Errorf("failed to count visits: %w", err)
		}

		err = tx.Model(&schema.Affiliate{}).
			Where("id = ?", affiliateID).
			Updates(map[string]any{
				"total_earnings":  earnings.Total,
				"unpaid_earnings": earnings.Unpaid,
				"referrals":       earnings.Referrals,
				"visits":          visits,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to update affiliate earnings: %w", err)
		}

		return nil
	})
}

// GetAffiliateByID retrieves an affiliate by ID
func (s *sqlStore) GetAffiliateByID(ctx context.Context, id int64) (*schema.Affiliate, error) {
	var affiliate schema.Affiliate
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&affiliate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get affiliate: %w", err)
	}
	return &affiliate, nil
}

// GetReferralByID retrieves a referral by ID
func (s *sqlStore) GetReferralByID(ctx context.Context, id int64) (*schema.Referral, error) {
	var referral schema.Referral
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&referral).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get referral: %w", err)
	}
	return &referral, nil
}

// CountMigrated returns target row counts per stage
func (s *sqlStore) CountMigrated(ctx context.Context) (domain.StageCounts, error) {
	counts := domain.StageCounts{}
	db := s.db.WithContext(ctx)

	queries := map[domain.Stage]*gorm.DB{
		domain.StageAffiliateGroups: db.Model(&schema.Meta{}).Where("object_type = ?", domain.MetaObjectAffiliateGroup),
		domain.StageAffiliates:      db.Model(&schema.Affiliate{}),
		domain.StageReferrals:       db.Model(&schema.Referral{}),
		domain.StageCustomers:       db.Model(&schema.Customer{}),
		domain.StagePayouts:         db.Model(&schema.PayoutTransaction{}),
		domain.StageVisits:          db.Model(&schema.Visit{}),
	}

	for stage, query := range queries {
		var n int64
		if err := query.Count(&n).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", stage, err)
		}
		counts[stage] = n
	}

	return counts, nil
}
