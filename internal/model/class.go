package model

import "time"

// Class represents an entry in the studio's class catalog: a kind of
// session that can be scheduled, not a dated occurrence. Capacity here
// is the default used when a weekly schedule does not override it.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – class name (e.g. "Level 1 - Fundamentals").
//  Instructor  – display name of the instructor.
//  Duration    – human-readable duration label (e.g. "50 min").
//  Difficulty  – difficulty label (Beginner, Intermediate, Advanced, All Levels).
//  Capacity    – default number of reformer beds for this class.
//  Description – marketing description.
//  ImageURL    – media reference shown on the website.
//  CreatedAt   – creation timestamp.
type Class struct {
	ID          uint64
	Name        string
	Instructor  string
	Duration    string
	Difficulty  string
	Capacity    int
	Description string
	ImageURL    string
	CreatedAt   time.Time
}
