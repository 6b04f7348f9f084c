package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedTestData resets the database and populates it with demo users,
// profiles, locations, tags and likes.
//
// Behavior:
//  1. Clears all engine tables.
//  2. Creates 20 verified users with hashed passwords, alternating genders
//     and a spread of orientations, each with a profile, a location near one
//     of four cities, and 2-4 interest tags.
//  3. Generates ~150 likes with every 3rd pair forced mutual.
//
// Compatible with both MySQL and SQLite (used by tests).
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	tables := []string{
		"notifications", "profile_views", "reports", "passes", "blocks",
		"likes", "user_tags", "tags", "locations", "profiles", "users",
	}
	for _, tbl := range tables {
		if err := db.Exec("DELETE FROM " + tbl).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", tbl, err)
		}
	}

	log.Println("Cleared existing data")

	genders := []string{"male", "female", "non-binary"}
	orientations := []string{"straight", "straight", "gay", "lesbian", "bisexual", "pansexual"}
	cities := []struct {
		city, country string
		lat, lon      float64
	}{
		{"Paris", "France", 48.8566, 2.3522},
		{"Lyon", "France", 45.7640, 4.8357},
		{"Marseille", "France", 43.2965, 5.3698},
		{"Lille", "France", 50.6292, 3.0573},
	}
	tagNames := []string{"hiking", "cinema", "cooking", "travel", "music", "yoga", "gaming", "wine"}

	tags := make([]Tag, 0, len(tagNames))
	for _, name := range tagNames {
		tag := Tag{Name: name}
		if err := db.Create(&tag).Error; err != nil {
			return fmt.Errorf("failed to seed tag: %w", err)
		}
		tags = append(tags, tag)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	for i := 1; i <= 20; i++ {
		user := User{
			Username:     fmt.Sprintf("user%d", i),
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			Verified:     true,
			Active:       true,
			LastActiveAt: time.Now().Add(-time.Duration(r.Intn(500)) * time.Hour),
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}

		age := 21 + r.Intn(20)
		profile := Profile{
			UserID:      user.ID,
			Gender:      genders[i%len(genders)],
			Orientation: orientations[i%len(orientations)],
			BirthDate:   time.Now().AddDate(-age, 0, 0),
			Bio:         fmt.Sprintf("Hi, I'm user%d. Ask me about %s.", i, tagNames[i%len(tagNames)]),
			PhotoCount:  1 + r.Intn(4),
		}
		if err := db.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}

		c := cities[i%len(cities)]
		loc := Location{
			UserID:    user.ID,
			Latitude:  c.lat + (r.Float64()-0.5)*0.1,
			Longitude: c.lon + (r.Float64()-0.5)*0.1,
			City:      c.city,
			Country:   c.country,
			Source:    LocationSourceGPS,
		}
		if err := db.Create(&loc).Error; err != nil {
			return fmt.Errorf("failed to seed location: %w", err)
		}

		for j := 0; j < 2+r.Intn(3); j++ {
			ut := UserTag{UserID: user.ID, TagID: tags[r.Intn(len(tags))].ID}
			db.Clauses(clause.OnConflict{DoNothing: true}).Create(&ut)
		}
	}
	log.Println("Seeded 20 users with profiles, locations and tags")

	var users []User
	if err := db.Order("id").Find(&users).Error; err != nil {
		return err
	}

	counter := 0
	for _, actor := range users {
		for j := 0; j < 8; j++ {
			target := users[r.Intn(len(users))]
			if actor.ID == target.ID {
				continue
			}

			like := Like{UserID: actor.ID, LikedUserID: target.ID}
			if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
				return fmt.Errorf("failed to seed like: %w", err)
			}

			// guarantee mutual likes every 3rd pair
			if counter%3 == 0 {
				recip := Like{UserID: target.ID, LikedUserID: actor.ID}
				db.Clauses(clause.OnConflict{DoNothing: true}).Create(&recip)
			}
			counter++
		}
	}
	log.Println("Seeded likes")

	return nil
}
