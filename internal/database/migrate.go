package database

import (
	"context"
	"database/sql"
	"log"
)

// migrations are applied in order on every start. Each statement is
// idempotent (CREATE TABLE IF NOT EXISTS) so restarts are safe without
// a version table.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		name VARCHAR(191) NOT NULL,
		email VARCHAR(191) NOT NULL UNIQUE,
		phone VARCHAR(32) NOT NULL DEFAULT '',
		password_hash VARCHAR(255) NOT NULL,
		membership_plan VARCHAR(64) NOT NULL DEFAULT '',
		role VARCHAR(16) NOT NULL DEFAULT 'MEMBER',
		status VARCHAR(16) NOT NULL DEFAULT 'Active',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		user_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		INDEX idx_refresh_user (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS classes (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		name VARCHAR(191) NOT NULL,
		instructor VARCHAR(191) NOT NULL DEFAULT '',
		duration VARCHAR(32) NOT NULL DEFAULT '50 min',
		difficulty VARCHAR(32) NOT NULL DEFAULT 'All Levels',
		capacity INT NOT NULL DEFAULT 8,
		description TEXT,
		image_url VARCHAR(512) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS weekly_schedules (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		class_id BIGINT UNSIGNED NOT NULL,
		day_of_week VARCHAR(9) NOT NULL,
		start_time TIME NOT NULL,
		end_time TIME NOT NULL,
		max_capacity INT NOT NULL DEFAULT 8,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_ws_class FOREIGN KEY (class_id) REFERENCES classes(id),
		UNIQUE KEY uq_ws_slot (class_id, day_of_week, start_time)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS schedule_instances (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		weekly_schedule_id BIGINT UNSIGNED NULL,
		class_id BIGINT UNSIGNED NOT NULL,
		class_date DATE NOT NULL,
		start_time TIME NOT NULL,
		end_time TIME NOT NULL,
		max_capacity INT NOT NULL DEFAULT 8,
		current_bookings INT NOT NULL DEFAULT 0,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		is_cancelled TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_si_schedule FOREIGN KEY (weekly_schedule_id) REFERENCES weekly_schedules(id) ON DELETE SET NULL,
		CONSTRAINT fk_si_class FOREIGN KEY (class_id) REFERENCES classes(id),
		UNIQUE KEY uq_si_slot (weekly_schedule_id, class_date),
		INDEX idx_si_date (class_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS class_bookings (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		user_id BIGINT UNSIGNED NOT NULL,
		schedule_instance_id BIGINT UNSIGNED NOT NULL,
		status VARCHAR(24) NOT NULL DEFAULT 'booked',
		attended_at DATETIME NULL,
		cancelled_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_cb_user FOREIGN KEY (user_id) REFERENCES users(id),
		CONSTRAINT fk_cb_instance FOREIGN KEY (schedule_instance_id) REFERENCES schedule_instances(id),
		INDEX idx_cb_user (user_id),
		INDEX idx_cb_instance_status (schedule_instance_id, status)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS user_memberships (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		user_id BIGINT UNSIGNED NOT NULL,
		package_type VARCHAR(64) NOT NULL,
		total_sessions INT NOT NULL,
		used_sessions INT NOT NULL DEFAULT 0,
		remaining_sessions INT NOT NULL,
		valid_until DATETIME NOT NULL,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_um_user FOREIGN KEY (user_id) REFERENCES users(id),
		INDEX idx_um_user_active (user_id, is_active)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS purchases (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		user_id BIGINT UNSIGNED NOT NULL,
		booking_type VARCHAR(16) NOT NULL,
		package_id VARCHAR(64) NOT NULL,
		package_sessions INT NOT NULL DEFAULT 0,
		package_validity_days INT NOT NULL DEFAULT 0,
		amount DECIMAL(10,2) NOT NULL DEFAULT 0,
		status VARCHAR(32) NOT NULL DEFAULT 'pending_payment',
		payment_status VARCHAR(16) NOT NULL DEFAULT 'pending',
		payment_method VARCHAR(32) NULL,
		reference_number VARCHAR(16) NOT NULL UNIQUE,
		membership_id BIGINT UNSIGNED NULL,
		rejection_reason VARCHAR(512) NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		confirmed_at DATETIME NULL,
		cancelled_at DATETIME NULL,
		CONSTRAINT fk_pu_user FOREIGN KEY (user_id) REFERENCES users(id),
		CONSTRAINT fk_pu_membership FOREIGN KEY (membership_id) REFERENCES user_memberships(id) ON DELETE SET NULL,
		INDEX idx_pu_user (user_id),
		INDEX idx_pu_status (status)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS contact_messages (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		name VARCHAR(191) NOT NULL,
		email VARCHAR(191) NOT NULL,
		phone VARCHAR(32) NOT NULL DEFAULT '',
		subject VARCHAR(191) NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'New',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// seedClasses populates the class catalog on an empty database so a
// fresh deployment has something to schedule.
var seedClasses = [][]any{
	{"Level 1 - Fundamentals", "Adama Jallow", "50 min", "Beginner", 8,
		"An introduction to the reformer: footwork, breathing and core control at a steady pace."},
	{"Level 2 - Progression", "Adama Jallow", "50 min", "Intermediate", 8,
		"Builds on the fundamentals with flowing sequences and added resistance."},
	{"Athletic Reformer", "Fatou Ceesay", "55 min", "Advanced", 8,
		"A fast paced full body session for experienced movers."},
	{"Restore & Stretch", "Fatou Ceesay", "50 min", "All Levels", 8,
		"A slower session focused on mobility, stretching and recovery."},
	{"Private Session", "Studio Team", "55 min", "All Levels", 1,
		"One-on-one coaching tailored to your goals."},
}

// Migrate applies the schema and seeds the catalog when empty.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	var classes int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM classes`).Scan(&classes); err != nil {
		return err
	}
	if classes == 0 {
		for _, c := range seedClasses {
			if _, err := db.ExecContext(ctx,
				`INSERT INTO classes (name, instructor, duration, difficulty, capacity, description) VALUES (?,?,?,?,?,?)`,
				c...); err != nil {
				return err
			}
		}
		log.Printf("migrate: seeded %d classes", len(seedClasses))
	}
	return nil
}
