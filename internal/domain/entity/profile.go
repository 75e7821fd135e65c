package entity

import "time"

// Profile is the alumni directory record. It is owned by the profile
// collaborator; the messaging core reads it only to decorate conversations
// with display data. Email is display-only, never used for addressing.
type Profile struct {
	ID                string    `json:"id" firestore:"id"`
	Name              string    `json:"name" firestore:"name"`
	Email             string    `json:"email" firestore:"email"`
	Headline          string    `json:"headline,omitempty" firestore:"headline,omitempty"`
	CurrentJob        string    `json:"current_job,omitempty" firestore:"currentJob,omitempty"`
	Company           string    `json:"company,omitempty" firestore:"company,omitempty"`
	ProfilePictureURL string    `json:"profile_picture_url,omitempty" firestore:"profilePictureUrl,omitempty"`
	CreatedAt         time.Time `json:"created_at" firestore:"createdAt"`
}
