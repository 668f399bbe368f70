package db_test

import (
	"errors"
	"testing"

	"tickertalk/internal/db/dbtest"
	"tickertalk/internal/models"

	"gorm.io/gorm"
)

func TestMigrateCreatesNamedTables(t *testing.T) {
	conn := dbtest.Open(t)
	for _, table := range []string{"users", "post", "comment", "likes", "live_posts"} {
		if !conn.Migrator().HasTable(table) {
			t.Errorf("Expected table %s to exist", table)
		}
	}
}

func TestUsernameUniqueIgnoresCase(t *testing.T) {
	conn := dbtest.Open(t)
	first := models.User{FirstName: "Ada", LastName: "Lovelace", Username: "ada", Email: "ada@example.com", Password: "x"}
	if err := conn.Create(&first).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := models.User{FirstName: "Ada", LastName: "L", Username: "ADA", Email: "other@example.com", Password: "x"}
	if err := conn.Create(&dup).Error; err == nil {
		t.Errorf("Expected duplicate username (different case) to fail")
	}
	dupMail := models.User{FirstName: "Ada", LastName: "L", Username: "ada2", Email: "ADA@example.com", Password: "x"}
	if err := conn.Create(&dupMail).Error; err == nil {
		t.Errorf("Expected duplicate email (different case) to fail")
	}
}

func TestLikesPairIsUnique(t *testing.T) {
	conn := dbtest.Open(t)
	u := models.User{FirstName: "Bo", LastName: "Bb", Username: "bobo", Email: "bo@example.com", Password: "x"}
	conn.Create(&u)
	p := models.Post{Title: "t", UserID: u.ID}
	conn.Create(&p)

	if err := conn.Create(&models.Like{UserID: u.ID, PostID: p.ID}).Error; err != nil {
		t.Fatalf("first like: %v", err)
	}
	err := conn.Create(&models.Like{UserID: u.ID, PostID: p.ID}).Error
	if err == nil {
		t.Fatalf("Expected second identical like to violate the primary key")
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("Unexpected error kind: %v", err)
	}
}
