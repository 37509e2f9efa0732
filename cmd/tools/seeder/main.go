package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedProfiles(db)
	seedDepartments(db)
	eventID := seedEvent(db)
	seedFees(db, eventID)
	seedLodging(db, eventID)
	seedMeals(db, eventID)
	seedDiscounts(db, eventID)

	log.Println("Seeding completed successfully!")
}

func seedProfiles(db *sql.DB) {
	profiles := []struct {
		Name  string
		Email string
		Role  string
	}{
		{"Portal Admin", "admin@campmeet.org", "admin"},
		{"Sarah Organizer", "sarah@campmeet.org", "admin"},
		{"Pastor Daniel", "daniel@example.com", "staff"},
		{"Maria Gonzales", "maria@example.com", "member"},
		{"John Carter", "john@example.com", "member"},
		{"Ruth Adeyemi", "ruth@example.com", "member"},
		{"Peter Kim", "peter@example.com", "member"},
		{"Grace Lin", "grace@example.com", "member"},
	}

	fmt.Println("Seeding Profiles...")
	for _, p := range profiles {
		_, err := db.Exec(`
			INSERT INTO profiles (full_name, email, role)
			VALUES ($1, $2, $3)
			ON CONFLICT (email) DO UPDATE SET full_name = EXCLUDED.full_name, role = EXCLUDED.role;
		`, p.Name, p.Email, p.Role)
		if err != nil {
			log.Printf("Failed to seed profile %s: %v", p.Email, err)
		}
	}
}

func seedDepartments(db *sql.DB) {
	departments := []struct {
		Code string
		Name string
	}{
		{"adult", "Adults"},
		{"youth", "Youth"},
		{"children", "Children"},
		{"seniors", "Seniors"},
		{"choir", "Choir"},
		{"ushers", "Ushers"},
	}

	fmt.Println("Seeding Departments...")
	for _, d := range departments {
		_, err := db.Exec(`
			INSERT INTO departments (code, name)
			VALUES ($1, $2)
			ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name;
		`, d.Code, d.Name)
		if err != nil {
			log.Printf("Failed to seed department %s: %v", d.Code, err)
		}
	}
}

func seedEvent(db *sql.DB) string {
	fmt.Println("Seeding Event...")
	var eventID string
	err := db.QueryRow(`
		INSERT INTO events (slug, name, description, location, start_date, end_date)
		VALUES ('summer-camp-meeting-2026', 'Summer Camp Meeting 2026',
		        'Annual week-long camp meeting with lodging, meals and shuttle service.',
		        'Cedar Lake Campground', '2026-07-01', '2026-07-05')
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id;
	`).Scan(&eventID)
	if err != nil {
		log.Fatalf("Failed to seed event: %v", err)
	}

	_, err = db.Exec(`
		INSERT INTO event_settings (event_id, currency, room_key_deposit, lodging_option, meal_option, shuttle_option)
		VALUES ($1, 'USD', 1000, true, true, true)
		ON CONFLICT (event_id) DO UPDATE SET
			currency = EXCLUDED.currency,
			room_key_deposit = EXCLUDED.room_key_deposit,
			lodging_option = EXCLUDED.lodging_option,
			meal_option = EXCLUDED.meal_option,
			shuttle_option = EXCLUDED.shuttle_option;
	`, eventID)
	if err != nil {
		log.Fatalf("Failed to seed event settings: %v", err)
	}
	return eventID
}

func seedFees(db *sql.DB, eventID string) {
	fees := []struct {
		Category string
		Code     string
		Label    string
		Amount   int64
	}{
		{"registration", "base", "Registration fee", 15000},
		{"surcharge", "youth", "Youth department surcharge", 500},
		{"surcharge", "choir", "Choir department surcharge", 1000},
		{"shuttle", "arrival", "Airport shuttle (arrival)", 2500},
		{"shuttle", "departure", "Airport shuttle (departure)", 2500},
	}

	fmt.Println("Seeding Fees...")
	for _, f := range fees {
		_, err := db.Exec(`
			INSERT INTO event_fees (event_id, category, code, label, unit, amount)
			VALUES ($1, $2, $3, $4, 'each', $5)
			ON CONFLICT (event_id, category, code) DO UPDATE SET label = EXCLUDED.label, amount = EXCLUDED.amount;
		`, eventID, f.Category, f.Code, f.Label, f.Amount)
		if err != nil {
			log.Printf("Failed to seed fee %s/%s: %v", f.Category, f.Code, err)
		}
	}
}

func seedLodging(db *sql.DB, eventID string) {
	options := []struct {
		Name     string
		Nightly  int64
		Capacity int32
		AC       bool
	}{
		{"Dorm Bunk", 2000, 1, false},
		{"Standard Cabin", 6000, 4, false},
		{"Family Cabin", 9000, 6, true},
		{"RV Hookup", 3500, 1, false},
	}

	fmt.Println("Seeding Lodging Options...")
	for _, o := range options {
		_, err := db.Exec(`
			INSERT INTO lodging_options (event_id, name, nightly_rate, capacity_per_room, ac)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT DO NOTHING;
		`, eventID, o.Name, o.Nightly, o.Capacity, o.AC)
		if err != nil {
			log.Printf("Failed to seed lodging option %s: %v", o.Name, err)
		}
	}
}

func seedMeals(db *sql.DB, eventID string) {
	days := []string{"2026-07-01", "2026-07-02", "2026-07-03", "2026-07-04", "2026-07-05"}
	meals := []struct {
		Type  string
		Price int64
	}{
		{"breakfast", 800},
		{"lunch", 1200},
		{"dinner", 1200},
	}

	fmt.Println("Seeding Meal Sessions...")
	for _, day := range days {
		for _, m := range meals {
			_, err := db.Exec(`
				INSERT INTO meal_sessions (event_id, meal_date, meal_type, price)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (event_id, meal_date, meal_type) DO UPDATE SET price = EXCLUDED.price;
			`, eventID, day, m.Type, m.Price)
			if err != nil {
				log.Printf("Failed to seed meal %s/%s: %v", day, m.Type, err)
			}
		}
	}
}

func seedDiscounts(db *sql.DB, eventID string) {
	discounts := []struct {
		Code         string
		Label        string
		Kind         string
		Scope        string
		Value        int64
		MinAttendees sql.NullInt32
		RequiresRole sql.NullString
		Stackable    bool
		Priority     int32
	}{
		{"EARLYBIRD", "Early Bird 10%", "percentage", "registration", 1000, sql.NullInt32{}, sql.NullString{}, true, 1},
		{"FAMILY5", "Family of five or more", "fixed", "registration", 5000, sql.NullInt32{Int32: 5, Valid: true}, sql.NullString{}, false, 2},
		{"STAFFMEALS", "Staff meal discount", "percentage", "meal", 2500, sql.NullInt32{}, sql.NullString{String: "staff", Valid: true}, true, 3},
	}

	fmt.Println("Seeding Discounts...")
	for _, d := range discounts {
		_, err := db.Exec(`
			INSERT INTO event_discounts (event_id, code, label, kind, scope, value, min_attendees, requires_role, is_stackable, priority)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (event_id, code) DO UPDATE SET
				label = EXCLUDED.label, value = EXCLUDED.value,
				min_attendees = EXCLUDED.min_attendees, requires_role = EXCLUDED.requires_role,
				is_stackable = EXCLUDED.is_stackable, priority = EXCLUDED.priority;
		`, eventID, d.Code, d.Label, d.Kind, d.Scope, d.Value, d.MinAttendees, d.RequiresRole, d.Stackable, d.Priority)
		if err != nil {
			log.Printf("Failed to seed discount %s: %v", d.Code, err)
		}
	}
}
