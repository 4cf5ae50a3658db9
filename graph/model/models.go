package model

// NewPost - аргументы мутации createPost.
type NewPost struct {
	Title         string
	Description   string
	RepoURL       string
	WebsiteURL    string
	CoverPhotoURL string
}

// PostPatch - аргументы мутации updatePost. nil означает "поле не передано".
type PostPatch struct {
	Title         *string
	Description   *string
	RepoURL       *string
	WebsiteURL    *string
	CoverPhotoURL *string
}

// NewComment - аргументы мутации createComment.
type NewComment struct {
	Content string
	PostID  string
}
