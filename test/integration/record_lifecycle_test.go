package integration

import (
	"context"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	contactrepo "github.com/ahamdihussein-star/HSA-MDM-sub002/internal/repositories/contact"
	documentrepo "github.com/ahamdihussein-star/HSA-MDM-sub002/internal/repositories/document"
	lineagerepo "github.com/ahamdihussein-star/HSA-MDM-sub002/internal/repositories/lineage"
	recordrepo "github.com/ahamdihussein-star/HSA-MDM-sub002/internal/repositories/record"
	sanctionsrepo "github.com/ahamdihussein-star/HSA-MDM-sub002/internal/repositories/sanctions"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/builder"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/database"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/events"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/grouping"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/kafka"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/lifecycle"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/models"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/normalizers"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/processor"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/quality"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/quarantine"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/records"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func getTestDB(t *testing.T) (*sqlx.DB, database.DB) {
	_ = godotenv.Load("../../.env")

	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}
	dbUser := os.Getenv("DB_USER_NAME")
	if dbUser == "" {
		dbUser = "user"
	}
	dbPass := os.Getenv("DB_PASSWORD")
	if dbPass == "" {
		dbPass = "password"
	}
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "mdm_records"
	}

	dsn := "host=" + dbHost + " user=" + dbUser + " password=" + dbPass + " dbname=" + dbName + " sslmode=disable"
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err, "Failed to connect to test database")

	logger := getTestLogger()

	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
	require.NoError(t, err)
	ms := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: "../../db/pg",
	})
	require.NoError(t, ms.Migrate(dbName, driver))

	return db, database.NewDatabaseInstance(db, logger)
}

// testStack wires the full service graph against a real database.
type testStack struct {
	sqlDB *sqlx.DB

	records   *records.Service
	groups    *grouping.Service
	builder   *builder.Service
	lifecycle *lifecycle.Service
	processor *processor.Processor

	recordRepo  *recordrepo.Repository
	contactRepo *contactrepo.Repository
	lineageRepo *lineagerepo.Repository
}

func newTestStack(t *testing.T) *testStack {
	sqlDB, db := getTestDB(t)
	logger := getTestLogger()

	recordR := recordrepo.NewRepository(db, logger)
	contactR := contactrepo.NewRepository(db, logger)
	documentR := documentrepo.NewRepository(db, logger)
	lineageR := lineagerepo.NewRepository(db, logger)
	sanctionsR := sanctionsrepo.NewRepository(db, logger)

	machine := lifecycle.NewMachine()
	scorer := quality.NewScorer()
	engine := grouping.NewEngine(logger)
	partitioner := quarantine.NewPartitioner(logger, machine, recordR, lineageR, sanctionsR)
	emitter := events.NewEmitter(nil, logger)

	recordsSvc := records.NewService(logger, db, recordR, contactR, documentR, lineageR, emitter)
	return &testStack{
		sqlDB:     sqlDB,
		records:   recordsSvc,
		groups:    grouping.NewService(logger, engine, scorer, recordR),
		builder:   builder.NewService(logger, db, scorer, machine, recordR, contactR, documentR, lineageR, partitioner, emitter),
		lifecycle: lifecycle.NewService(logger, db, machine, recordR, lineageR, emitter),
		processor: processor.NewProcessor(logger, db, recordR, lineageR, recordsSvc, emitter),

		recordRepo:  recordR,
		contactRepo: contactR,
		lineageRepo: lineageR,
	}
}

func uniqueTax() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
}

func dataEntry() models.Actor  { return models.Actor{ID: "de-1", Role: models.RoleDataEntry} }
func reviewer() models.Actor   { return models.Actor{ID: "rv-1", Role: models.RoleReviewer} }
func compliance() models.Actor { return models.Actor{ID: "cp-1", Role: models.RoleCompliance} }

func createRecord(t *testing.T, s *testStack, tenantID, tax, name, source string) *models.Record {
	t.Helper()
	rec, err := s.records.Create(context.Background(), tenantID, dataEntry(), models.CreateRecordRequest{
		RequestID:     uuid.New().String(),
		Origin:        "data_entry",
		SourceSystem:  source,
		TaxNumber:     tax,
		CompanyName:   name,
		CompanyNameAr: "شركة " + name,
		Country:       "Egypt",
		City:          "Cairo",
	})
	require.NoError(t, err)
	return rec
}

func lineageActions(t *testing.T, s *testStack, tenantID, recordID string) []models.LifecycleAction {
	t.Helper()
	eventsList, err := s.lineageRepo.ListByRecord(context.Background(), tenantID, recordID)
	require.NoError(t, err)
	actions := make([]models.LifecycleAction, len(eventsList))
	for i, e := range eventsList {
		actions[i] = e.Action
	}
	return actions
}

func TestMasterLifecycle_FullFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	s := newTestStack(t)
	ctx := context.Background()
	tenantID := uuid.New().String()
	tax := uniqueTax()
	key := normalizers.NormalizeTaxID(tax)

	r1 := createRecord(t, s, tenantID, tax, "Hassan Trading LLC", "sap")
	r2 := createRecord(t, s, tenantID, tax, "Hassan Trading", "oracle")
	r3 := createRecord(t, s, tenantID, tax, "Hasan Trading Co", "legacy")

	// Creation opens the record as pending review work.
	assert.Equal(t, models.StatusPending, r1.Status)
	assert.Equal(t, models.RoleReviewer, r1.AssignedTo)

	t.Run("GroupIsVisible", func(t *testing.T) {
		groups, err := s.groups.ListDuplicateGroups(ctx, tenantID, 1, 100)
		require.NoError(t, err)
		var found *models.DuplicateGroup
		for i := range groups.Items {
			if groups.Items[i].GroupKey == key {
				found = &groups.Items[i]
			}
		}
		require.NotNil(t, found, "expected duplicate group for key %s", key)
		assert.Equal(t, 3, found.MemberCount)
		assert.False(t, found.HasOpenMaster)
	})

	t.Run("GroupRecordsCarryScores", func(t *testing.T) {
		resp, err := s.groups.GetRecordsByKey(ctx, tenantID, tax)
		require.NoError(t, err)
		require.Len(t, resp.Records, 3)
		for _, scored := range resp.Records {
			assert.Greater(t, scored.FieldScores[models.FieldCompanyName], 0)
		}
	})

	var masterID string
	t.Run("BuildMaster", func(t *testing.T) {
		resp, err := s.builder.BuildMaster(ctx, tenantID, dataEntry(), models.BuildMasterRequest{
			GroupKey:        tax,
			SourceRecordIDs: []string{r1.ID, r2.ID},
			QuarantineIDs:   []string{r3.ID},
			QuarantineNote:  "company name disputed, needs verification",
		})
		require.NoError(t, err)
		masterID = resp.Master.ID

		assert.True(t, resp.Master.IsMaster)
		assert.Equal(t, models.StatusPending, resp.Master.Status)
		assert.Equal(t, models.RoleReviewer, resp.Master.AssignedTo)
		assert.ElementsMatch(t, []string{r1.ID, r2.ID}, resp.Linked)
		assert.Equal(t, []string{r3.ID}, resp.Quarantined)
		require.Len(t, resp.Master.BuiltFromRecords.Data, 2)

		linked, err := s.recordRepo.GetByID(ctx, tenantID, r1.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusLinked, linked.Status)
		require.NotNil(t, linked.MasterID)
		assert.Equal(t, masterID, *linked.MasterID)

		quarantined, err := s.recordRepo.GetByID(ctx, tenantID, r3.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusQuarantined, quarantined.Status)
		require.NotNil(t, quarantined.QuarantineReason)
	})

	t.Run("GroupIsResolved", func(t *testing.T) {
		groups, err := s.groups.ListDuplicateGroups(ctx, tenantID, 1, 100)
		require.NoError(t, err)
		for _, g := range groups.Items {
			assert.NotEqual(t, key, g.GroupKey, "resolved group must not be listed")
		}
	})

	t.Run("RejectAndResubmit", func(t *testing.T) {
		rejected, err := s.builder.Reject(ctx, tenantID, masterID, reviewer(), "missing registration documents")
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, rejected.Status)
		assert.Equal(t, models.RoleDataEntry, rejected.AssignedTo)
		require.NotNil(t, rejected.RejectReason)

		resubmitted, err := s.builder.ResubmitMaster(ctx, tenantID, masterID, dataEntry(), models.ResubmitMasterRequest{
			Selections: []models.FieldSelection{
				{Field: models.FieldCompanyName, ManualValue: "Hassan Trading Group"},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, resubmitted.Status)
		assert.Nil(t, resubmitted.RejectReason)
		assert.Equal(t, "Hassan Trading Group", resubmitted.CompanyName)
		assert.Equal(t, models.ManualEntrySource, resubmitted.SelectedFieldSources.Data[models.FieldCompanyName])
	})

	t.Run("ApproveAndComplianceApprove", func(t *testing.T) {
		approved, err := s.builder.Approve(ctx, tenantID, masterID, reviewer(), "fields verified", nil)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, approved.Status)
		assert.Equal(t, models.RoleCompliance, approved.AssignedTo)
		assert.False(t, approved.IsGolden)

		golden, err := s.builder.ComplianceApprove(ctx, tenantID, masterID, compliance(), "no sanctions findings")
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, golden.Status)
		assert.True(t, golden.IsGolden)
	})

	t.Run("MasterLineageIsComplete", func(t *testing.T) {
		actions := lineageActions(t, s, tenantID, masterID)
		assert.Equal(t, []models.LifecycleAction{
			models.ActionMerge,
			models.ActionMasterReject,
			models.ActionResubmitToMaster,
			models.ActionMasterApprove,
			models.ActionComplianceApprove,
		}, actions)
	})

	t.Run("MasterMembersReverseIndex", func(t *testing.T) {
		resp, err := s.records.MasterMembers(ctx, tenantID, masterID)
		require.NoError(t, err)
		assert.Len(t, resp.Members, 3)
	})
}

func TestBuildMaster_Validation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	s := newTestStack(t)
	ctx := context.Background()
	tenantID := uuid.New().String()
	tax := uniqueTax()

	r1 := createRecord(t, s, tenantID, tax, "Delta Foods SAE", "sap")
	r2 := createRecord(t, s, tenantID, tax, "Delta Foods", "oracle")

	t.Run("WrongRoleCannotBuild", func(t *testing.T) {
		_, err := s.builder.BuildMaster(ctx, tenantID, reviewer(), models.BuildMasterRequest{
			GroupKey:        tax,
			SourceRecordIDs: []string{r1.ID, r2.ID},
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusForbidden, httperror.GetStatusCode(err))
	})

	t.Run("SourceCannotAlsoBeQuarantined", func(t *testing.T) {
		_, err := s.builder.BuildMaster(ctx, tenantID, dataEntry(), models.BuildMasterRequest{
			GroupKey:        tax,
			SourceRecordIDs: []string{r1.ID, r2.ID},
			QuarantineIDs:   []string{r2.ID},
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("BuildThenRejectNeedsRealReason", func(t *testing.T) {
		resp, err := s.builder.BuildMaster(ctx, tenantID, dataEntry(), models.BuildMasterRequest{
			GroupKey:        tax,
			SourceRecordIDs: []string{r1.ID, r2.ID},
		})
		require.NoError(t, err)

		_, err = s.builder.Reject(ctx, tenantID, resp.Master.ID, reviewer(), "bad")
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("MissingArabicNameBlocksBuild", func(t *testing.T) {
		bareTax := uniqueTax()
		bare := func(source string) *models.Record {
			rec, err := s.records.Create(ctx, tenantID, dataEntry(), models.CreateRecordRequest{
				RequestID:    uuid.New().String(),
				Origin:       "data_entry",
				SourceSystem: source,
				TaxNumber:    bareTax,
				CompanyName:  "Suez Glass",
			})
			require.NoError(t, err)
			return rec
		}
		b1, b2 := bare("sap"), bare("oracle")

		// No member carries the localized name, so the plan cannot
		// resolve it automatically.
		_, err := s.builder.BuildMaster(ctx, tenantID, dataEntry(), models.BuildMasterRequest{
			GroupKey:        bareTax,
			SourceRecordIDs: []string{b1.ID, b2.ID},
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))

		// A manual entry for the missing field unblocks the build.
		resp, err := s.builder.BuildMaster(ctx, tenantID, dataEntry(), models.BuildMasterRequest{
			GroupKey:        bareTax,
			SourceRecordIDs: []string{b1.ID, b2.ID},
			Selections: []models.FieldSelection{
				{Field: models.FieldCompanyNameAr, ManualValue: "شركة زجاج السويس"},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "شركة زجاج السويس", resp.Master.CompanyNameAr)
		assert.Equal(t, models.ManualEntrySource, resp.Master.SelectedFieldSources.Data[models.FieldCompanyNameAr])
	})

	t.Run("LinkedMembersCannotBeRebuilt", func(t *testing.T) {
		_, err := s.builder.BuildMaster(ctx, tenantID, dataEntry(), models.BuildMasterRequest{
			GroupKey:        tax,
			SourceRecordIDs: []string{r1.ID, r2.ID},
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
	})
}

func TestBuildMaster_StagesContacts(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	s := newTestStack(t)
	ctx := context.Background()
	tenantID := uuid.New().String()
	tax := uniqueTax()

	r1 := createRecord(t, s, tenantID, tax, "Luxor Hotels", "sap")
	r2 := createRecord(t, s, tenantID, tax, "Luxor Hotels Group", "oracle")

	contact := &models.Contact{
		TenantID:  tenantID,
		RecordID:  r1.ID,
		Name:      "Mona Adel",
		JobTitle:  "Finance Manager",
		Email:     "mona.adel@luxor.example.com",
		IsPrimary: true,
	}
	require.NoError(t, s.contactRepo.Create(ctx, contact))

	t.Run("UnknownContactRollsBackBuild", func(t *testing.T) {
		_, err := s.builder.BuildMaster(ctx, tenantID, dataEntry(), models.BuildMasterRequest{
			GroupKey:        tax,
			SourceRecordIDs: []string{r1.ID, r2.ID},
			StagedContacts: []models.StagedContact{
				{SourceRecordID: r1.ID, ContactID: uuid.New().String()},
			},
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))

		// The failed build left the members untouched.
		member, err := s.recordRepo.GetByID(ctx, tenantID, r1.ID)
		require.NoError(t, err)
		assert.Nil(t, member.MasterID)
		assert.Equal(t, models.StatusPending, member.Status)
	})

	t.Run("StagedContactIsCopiedOntoMaster", func(t *testing.T) {
		resp, err := s.builder.BuildMaster(ctx, tenantID, dataEntry(), models.BuildMasterRequest{
			GroupKey:        tax,
			SourceRecordIDs: []string{r1.ID, r2.ID},
			StagedContacts: []models.StagedContact{
				{SourceRecordID: r1.ID, ContactID: contact.ID},
			},
		})
		require.NoError(t, err)

		detail, err := s.records.GetDetail(ctx, tenantID, resp.Master.ID)
		require.NoError(t, err)
		require.Len(t, detail.Contacts, 1)
		copied := detail.Contacts[0]
		assert.Equal(t, "Mona Adel", copied.Name)
		assert.Equal(t, r1.ID, copied.Source, "copy records its originating record")
		assert.True(t, copied.Selected)
		assert.True(t, copied.IsPrimary)
		assert.NotEqual(t, contact.ID, copied.ID, "staging copies, never moves")
	})
}

func TestBuildMaster_ConcurrentBuildsSerialize(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	s := newTestStack(t)
	tenantID := uuid.New().String()
	tax := uniqueTax()

	r1 := createRecord(t, s, tenantID, tax, "Aswan Mining", "sap")
	r2 := createRecord(t, s, tenantID, tax, "Aswan Mining Co", "oracle")
	req := models.BuildMasterRequest{
		GroupKey:        tax,
		SourceRecordIDs: []string{r1.ID, r2.ID},
	}

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := s.builder.BuildMaster(context.Background(), tenantID, dataEntry(), req)
			errs <- err
		}()
	}
	first, second := <-errs, <-errs

	// The group lock serializes the builds: the loser re-reads the members
	// after the winner commits and finds them already linked.
	winner, loser := first, second
	if winner != nil {
		winner, loser = second, first
	}
	require.NoError(t, winner)
	require.Error(t, loser)
	assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(loser))

	open, err := s.recordRepo.FindOpenMaster(context.Background(), tenantID, normalizers.NormalizeTaxID(tax))
	require.NoError(t, err)
	require.NotNil(t, open, "exactly one master should have been built")

	linked, err := s.recordRepo.GetByID(context.Background(), tenantID, r1.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.MasterID)
	assert.Equal(t, open.ID, *linked.MasterID)
}

func TestBuildMaster_SupersedesOpenMaster(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	s := newTestStack(t)
	ctx := context.Background()
	tenantID := uuid.New().String()
	tax := uniqueTax()

	r1 := createRecord(t, s, tenantID, tax, "Nile Textiles", "sap")
	r2 := createRecord(t, s, tenantID, tax, "Nile Textiles Ltd", "oracle")

	first, err := s.builder.BuildMaster(ctx, tenantID, dataEntry(), models.BuildMasterRequest{
		GroupKey:        tax,
		SourceRecordIDs: []string{r1.ID, r2.ID},
	})
	require.NoError(t, err)

	// Late arrivals reopen the group while the first master is still pending.
	r3 := createRecord(t, s, tenantID, tax, "Nile Textile Co", "legacy")
	r4 := createRecord(t, s, tenantID, tax, "Nile Textiles Group", "crm")

	second, err := s.builder.BuildMaster(ctx, tenantID, dataEntry(), models.BuildMasterRequest{
		GroupKey:        tax,
		SourceRecordIDs: []string{r3.ID, r4.ID},
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.Master.ID, second.Master.ID)

	demoted, err := s.recordRepo.GetByID(ctx, tenantID, first.Master.ID)
	require.NoError(t, err)
	assert.False(t, demoted.IsMaster)
	assert.Equal(t, models.StatusRejected, demoted.Status)

	actions := lineageActions(t, s, tenantID, first.Master.ID)
	assert.Contains(t, actions, models.ActionSupersede)
}

func TestApprove_QuarantinesLeftovers(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	s := newTestStack(t)
	ctx := context.Background()
	tenantID := uuid.New().String()
	tax := uniqueTax()

	r1 := createRecord(t, s, tenantID, tax, "Red Sea Imports", "sap")
	r2 := createRecord(t, s, tenantID, tax, "Red Sea Imports LLC", "oracle")
	r3 := createRecord(t, s, tenantID, tax, "RedSea Import", "legacy")

	resp, err := s.builder.BuildMaster(ctx, tenantID, dataEntry(), models.BuildMasterRequest{
		GroupKey:        tax,
		SourceRecordIDs: []string{r1.ID, r2.ID},
	})
	require.NoError(t, err)

	// r3 was never part of the build and is still open.
	approved, err := s.builder.Approve(ctx, tenantID, resp.Master.ID, reviewer(), "leftover cannot be verified", []string{r3.ID})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)

	leftover, err := s.recordRepo.GetByID(ctx, tenantID, r3.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusQuarantined, leftover.Status)
	require.NotNil(t, leftover.MasterID)
	assert.Equal(t, resp.Master.ID, *leftover.MasterID)
}

func TestComplianceBlock(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	s := newTestStack(t)
	ctx := context.Background()
	tenantID := uuid.New().String()
	tax := uniqueTax()

	r1 := createRecord(t, s, tenantID, tax, "Giza Cement", "sap")
	r2 := createRecord(t, s, tenantID, tax, "Giza Cement SAE", "oracle")

	resp, err := s.builder.BuildMaster(ctx, tenantID, dataEntry(), models.BuildMasterRequest{
		GroupKey:        tax,
		SourceRecordIDs: []string{r1.ID, r2.ID},
	})
	require.NoError(t, err)
	masterID := resp.Master.ID

	_, err = s.builder.Approve(ctx, tenantID, masterID, reviewer(), "", nil)
	require.NoError(t, err)

	_, err = s.builder.ComplianceBlock(ctx, tenantID, masterID, compliance(), "short")
	require.Error(t, err, "block reason under minimum length")

	_, err = s.builder.ComplianceBlock(ctx, tenantID, masterID, reviewer(), "entity appears on internal watch list")
	require.Error(t, err, "only compliance may block")

	blocked, err := s.builder.ComplianceBlock(ctx, tenantID, masterID, compliance(), "entity appears on internal watch list")
	require.NoError(t, err)
	assert.Equal(t, models.StatusBlocked, blocked.Status)
	assert.True(t, blocked.IsGolden)
	require.NotNil(t, blocked.BlockReason)
	assert.Equal(t, "entity appears on internal watch list", *blocked.BlockReason)
	assert.Contains(t, lineageActions(t, s, tenantID, masterID), models.ActionComplianceBlock)

	// Terminal: no further decisions apply.
	_, err = s.builder.ComplianceApprove(ctx, tenantID, masterID, compliance(), "late change of heart")
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
}

func TestBuildMaster_SanctionsHitIsQuarantined(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	s := newTestStack(t)
	ctx := context.Background()
	tenantID := uuid.New().String()
	tax := uniqueTax()

	_, err := s.sqlDB.ExecContext(ctx,
		"INSERT INTO sanctions_entries (tenant_id, normalized_tax, list_name) VALUES ($1, $2, $3)",
		tenantID, normalizers.NormalizeTaxID(tax), "ofac")
	require.NoError(t, err)

	r1 := createRecord(t, s, tenantID, tax, "Port Said Shipping", "sap")
	r2 := createRecord(t, s, tenantID, tax, "Port Said Shipping Co", "oracle")

	resp, err := s.builder.BuildMaster(ctx, tenantID, dataEntry(), models.BuildMasterRequest{
		GroupKey:        tax,
		SourceRecordIDs: []string{r1.ID, r2.ID},
	})
	require.NoError(t, err)

	// The sanctions list flags the tax key itself, so every member is
	// withheld even though the operator quarantined none.
	assert.Empty(t, resp.Linked)
	assert.ElementsMatch(t, []string{r1.ID, r2.ID}, resp.Quarantined)

	flagged, err := s.recordRepo.GetByID(ctx, tenantID, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusQuarantined, flagged.Status)
	require.NotNil(t, flagged.QuarantineReason)
	assert.Contains(t, lineageActions(t, s, tenantID, r1.ID), models.ActionQuarantine)
}

func TestFeedProcessor(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	s := newTestStack(t)
	ctx := context.Background()
	tenantID := uuid.New().String()
	tax := uniqueTax()
	requestID := uuid.New().String()

	feedMsg := func(name string) *kafka.IncomingMessage {
		msg := &kafka.IncomingMessage{
			Key: requestID,
			FeedMessage: &kafka.FeedMessage{
				TenantID:     tenantID,
				SourceSystem: "sap",
				RequestID:    requestID,
				Record: models.CreateRecordRequest{
					TaxNumber:   tax,
					CompanyName: name,
					Country:     "Egypt",
				},
			},
		}
		return msg
	}

	require.NoError(t, s.processor.HandleMessage(ctx, feedMsg("Alexandria Steel")))

	created, err := s.recordRepo.FindBySourceIdentity(ctx, tenantID, "sap", requestID)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, models.StatusPending, created.Status)
	assert.Equal(t, models.RoleReviewer, created.AssignedTo)
	assert.Equal(t, []models.LifecycleAction{models.ActionCreate}, lineageActions(t, s, tenantID, created.ID))

	// Identical redelivery is a no-op.
	require.NoError(t, s.processor.HandleMessage(ctx, feedMsg("Alexandria Steel")))
	assert.Len(t, lineageActions(t, s, tenantID, created.ID), 1)

	// A changed payload updates the record and records the diff.
	require.NoError(t, s.processor.HandleMessage(ctx, feedMsg("Alexandria Steel Works")))
	updated, err := s.recordRepo.GetByID(ctx, tenantID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUpdated, updated.Status)
	assert.Equal(t, "Alexandria Steel Works", updated.CompanyName)
	assert.NotEqual(t, created.Fingerprint, updated.Fingerprint)
	assert.Equal(t, created.Fingerprint, updated.PreviousFingerprint)
	assert.Contains(t, lineageActions(t, s, tenantID, created.ID), models.ActionFieldUpdate)

	t.Run("DataEntryEditsUpdatedRecord", func(t *testing.T) {
		edited, err := s.records.UpdateFields(ctx, tenantID, created.ID, dataEntry(), models.UpdateRecordFieldsRequest{
			Fields: map[string]string{models.FieldCity: "Alexandria"},
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusUpdated, edited.Status)
		assert.Equal(t, "Alexandria", edited.City)
	})

	t.Run("SubmitReturnsUpdatedRecordToReview", func(t *testing.T) {
		_, err := s.lifecycle.Transition(ctx, tenantID, created.ID, models.ActionSubmit, reviewer(), "", "")
		require.Error(t, err, "only data entry may submit")

		submitted, err := s.lifecycle.Transition(ctx, tenantID, created.ID, models.ActionSubmit, dataEntry(), "", "")
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, submitted.Status)
		assert.Equal(t, models.RoleReviewer, submitted.AssignedTo)
		assert.Contains(t, lineageActions(t, s, tenantID, created.ID), models.ActionSubmit)
	})

	t.Run("DuplicateCreateConflicts", func(t *testing.T) {
		_, err := s.records.Create(ctx, tenantID, dataEntry(), models.CreateRecordRequest{
			RequestID:    requestID,
			Origin:       "data_entry",
			SourceSystem: "sap",
			TaxNumber:    tax,
			CompanyName:  "Alexandria Steel",
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
	})
}
