package chat

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	"github.com/lib/pq"
)

func TestFindOrCreateConversationExisting(t *testing.T) {
	db, dbMock, _ := sqlmock.New()
	gormDB, _ := gorm.Open("postgres", db)
	externalID := "123@c.us"

	dbMock.ExpectQuery(`SELECT (.+) FROM "conversations" WHERE (.+)`).
		WithArgs(PlatformWhatsApp, externalID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "platform", "external_id"}).
			AddRow(7, PlatformWhatsApp, externalID))

	conversation, created, err := FindOrCreateConversation(gormDB, PlatformWhatsApp, &externalID, "+1234567890", "user-1", false)
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if created {
		t.Errorf("Created record instead of pulling existing")
	}
	if conversation.ID != 7 {
		t.Errorf("Wrong conversation loaded: %d", conversation.ID)
	}
}

func TestFindOrCreateConversationCreates(t *testing.T) {
	db, dbMock, _ := sqlmock.New()
	gormDB, _ := gorm.Open("postgres", db)
	externalID := "123@c.us"

	dbMock.ExpectQuery(`SELECT (.+) FROM "conversations" WHERE (.+)`).
		WithArgs(PlatformWhatsApp, externalID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	dbMock.ExpectBegin()
	dbMock.ExpectQuery(`INSERT INTO "conversations"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	dbMock.ExpectCommit()

	conversation, created, err := FindOrCreateConversation(gormDB, PlatformWhatsApp, &externalID, "+1234567890", "user-1", false)
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if !created {
		t.Errorf("Expected a new conversation")
	}
	if conversation.ID != 9 {
		t.Errorf("Created conversation has wrong id: %d", conversation.ID)
	}
	if err := dbMock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestFindOrCreateConversationAdoptsRaceWinner(t *testing.T) {
	db, dbMock, _ := sqlmock.New()
	gormDB, _ := gorm.Open("postgres", db)
	externalID := "123@c.us"

	dbMock.ExpectQuery(`SELECT (.+) FROM "conversations" WHERE (.+)`).
		WithArgs(PlatformWhatsApp, externalID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	dbMock.ExpectBegin()
	dbMock.ExpectQuery(`INSERT INTO "conversations"`).
		WillReturnError(&pq.Error{Code: "23505"})
	dbMock.ExpectRollback()
	dbMock.ExpectQuery(`SELECT (.+) FROM "conversations" WHERE (.+)`).
		WithArgs(PlatformWhatsApp, externalID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "external_id"}).AddRow(4, externalID))

	conversation, created, err := FindOrCreateConversation(gormDB, PlatformWhatsApp, &externalID, "+1234567890", "user-1", false)
	if err != nil {
		t.Errorf("Losing the insert race should adopt the winner: %v", err)
	}
	if created {
		t.Errorf("Race loser should not report creation")
	}
	if conversation == nil || conversation.ID != 4 {
		t.Errorf("Expected the winner's row to be adopted")
	}
}

func TestGetConversationNotFound(t *testing.T) {
	db, dbMock, _ := sqlmock.New()
	gormDB, _ := gorm.Open("postgres", db)

	dbMock.ExpectQuery(`SELECT (.+) FROM "conversations" WHERE (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := GetConversation(gormDB, 42); err != ErrConversationNotFound {
		t.Errorf("Expected ErrConversationNotFound, got %v", err)
	}
}
