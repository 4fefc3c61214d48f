package models

import "time"

// Post is a community discussion thread
type Post struct {
	ID         string    `json:"id"`
	AuthorUID  string    `json:"author_uid"`
	AuthorName string    `json:"author_name"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Tags       []string  `json:"tags,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Comment is a reply on a post
type Comment struct {
	ID         string    `json:"id"`
	PostID     string    `json:"post_id"`
	AuthorUID  string    `json:"author_uid"`
	AuthorName string    `json:"author_name"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// PostThread is a post with its comments
type PostThread struct {
	Post     Post      `json:"post"`
	Comments []Comment `json:"comments"`
}

// Poll is a multiple-choice question. Votes maps voter uid to option index.
type Poll struct {
	ID        string         `json:"id"`
	AuthorUID string         `json:"author_uid"`
	Question  string         `json:"question"`
	Options   []string       `json:"options"`
	Votes     map[string]int `json:"votes"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Tally counts votes per option
func (p *Poll) Tally() []int {
	counts := make([]int, len(p.Options))
	for _, idx := range p.Votes {
		if idx >= 0 && idx < len(counts) {
			counts[idx]++
		}
	}
	return counts
}

// PollResult is the public view of a poll; individual votes stay private
type PollResult struct {
	ID         string    `json:"id"`
	Question   string    `json:"question"`
	Options    []string  `json:"options"`
	Counts     []int     `json:"counts"`
	TotalVotes int       `json:"total_votes"`
	MyVote     *int      `json:"my_vote,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Result builds the public view for the viewer uid, which may be empty
func (p *Poll) Result(viewer string) PollResult {
	r := PollResult{
		ID:         p.ID,
		Question:   p.Question,
		Options:    p.Options,
		Counts:     p.Tally(),
		TotalVotes: len(p.Votes),
		CreatedAt:  p.CreatedAt,
	}
	if idx, ok := p.Votes[viewer]; ok && viewer != "" {
		r.MyVote = &idx
	}
	return r
}
