package entity

// City is a catalog entry referenced by favourites and email subscriptions.
// Name is stored exactly as first entered; "Paris" and "paris" are distinct cities.
type City struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DigestRecipient is a confirmed user together with the names of every
// city they receive in the daily digest.
type DigestRecipient struct {
	UserID   int64
	Username string
	Email    string
	Cities   []string
}
