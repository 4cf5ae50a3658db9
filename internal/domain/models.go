package domain

import "time"

// Ref - имя ссылочного поля, по которому можно фильтровать коллекции.
type Ref string

const (
	RefAuthor     Ref = "author"
	RefPost       Ref = "post"
	RefExternalID Ref = "externalID"
)

// Entity реализуется каждой хранимой записью.
type Entity interface {
	EntityID() string
	SetEntityID(id string)
	// RefValue возвращает значение ссылочного поля. ok == false, если у записи такого поля нет.
	RefValue(ref Ref) (value string, ok bool)
	SetCreatedAt(t time.Time)
}

// User - автор постов, комментариев и лайков.
type User struct {
	ID               string    `json:"id" bson:"_id" gorm:"type:varchar(24);primaryKey"`
	Name             string    `json:"name" bson:"name" gorm:"type:varchar(255)"`
	Location         string    `json:"location" bson:"location" gorm:"type:varchar(255)"`
	AvatarURL        string    `json:"avatarURL" bson:"avatarURL" gorm:"type:text"`
	Bio              string    `json:"bio" bson:"bio" gorm:"type:text"`
	ExternalID       string    `json:"externalID" bson:"externalID" gorm:"type:varchar(64);uniqueIndex"`
	ExternalUsername string    `json:"externalUsername" bson:"externalUsername" gorm:"type:varchar(255)"`
	CreatedAt        time.Time `json:"createdAt" bson:"createdAt" gorm:"not null"`
}

// Post - проект, опубликованный пользователем.
type Post struct {
	ID            string    `json:"id" bson:"_id" gorm:"type:varchar(24);primaryKey"`
	Title         string    `json:"title" bson:"title" gorm:"type:varchar(255);not null"`
	Description   string    `json:"description" bson:"description" gorm:"type:text;not null"`
	RepoURL       string    `json:"repoURL" bson:"repoURL" gorm:"type:text;not null"`
	WebsiteURL    string    `json:"websiteURL" bson:"websiteURL" gorm:"type:text;not null"`
	CoverPhotoURL string    `json:"coverPhotoURL" bson:"coverPhotoURL" gorm:"type:text;not null"`
	AuthorID      string    `json:"authorId" bson:"author" gorm:"type:varchar(24);not null;index"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt" gorm:"not null"`
}

// Comment - комментарий к посту.
type Comment struct {
	ID        string    `json:"id" bson:"_id" gorm:"type:varchar(24);primaryKey"`
	Content   string    `json:"content" bson:"content" gorm:"type:varchar(2000);not null"`
	PostID    string    `json:"postId" bson:"post" gorm:"type:varchar(24);not null;index"`
	AuthorID  string    `json:"authorId" bson:"author" gorm:"type:varchar(24);not null;index"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt" gorm:"not null"`
}

// Like не имеет собственного содержимого, только связывает пользователя с постом.
type Like struct {
	ID        string    `json:"id" bson:"_id" gorm:"type:varchar(24);primaryKey"`
	PostID    string    `json:"postId" bson:"post" gorm:"type:varchar(24);not null;index"`
	AuthorID  string    `json:"authorId" bson:"author" gorm:"type:varchar(24);not null;index"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt" gorm:"not null"`
}

func (u *User) EntityID() string         { return u.ID }
func (u *User) SetEntityID(id string)    { u.ID = id }
func (u *User) SetCreatedAt(t time.Time) { u.CreatedAt = t }

func (u *User) RefValue(ref Ref) (string, bool) {
	if ref == RefExternalID {
		return u.ExternalID, true
	}
	return "", false
}

func (p *Post) EntityID() string         { return p.ID }
func (p *Post) SetEntityID(id string)    { p.ID = id }
func (p *Post) SetCreatedAt(t time.Time) { p.CreatedAt = t }

func (p *Post) RefValue(ref Ref) (string, bool) {
	if ref == RefAuthor {
		return p.AuthorID, true
	}
	return "", false
}

func (c *Comment) EntityID() string         { return c.ID }
func (c *Comment) SetEntityID(id string)    { c.ID = id }
func (c *Comment) SetCreatedAt(t time.Time) { c.CreatedAt = t }

func (c *Comment) RefValue(ref Ref) (string, bool) {
	switch ref {
	case RefAuthor:
		return c.AuthorID, true
	case RefPost:
		return c.PostID, true
	}
	return "", false
}

func (l *Like) EntityID() string         { return l.ID }
func (l *Like) SetEntityID(id string)    { l.ID = id }
func (l *Like) SetCreatedAt(t time.Time) { l.CreatedAt = t }

func (l *Like) RefValue(ref Ref) (string, bool) {
	switch ref {
	case RefAuthor:
		return l.AuthorID, true
	case RefPost:
		return l.PostID, true
	}
	return "", false
}
