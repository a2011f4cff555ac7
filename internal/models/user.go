package models

// User 照护人账号（对应 users 表），LineID 为 LINE userId
type User struct {
	UsersID   int64  `json:"users_id" db:"users_id"`
	LineID    string `json:"users_line_id" db:"users_line_id"`
	FirstName string `json:"users_fname" db:"users_fname"`
	LastName  string `json:"users_sname" db:"users_sname"`
	Tel       string `json:"users_tel1" db:"users_tel1"`
}

// FullName 姓名
func (u *User) FullName() string {
	return joinName(u.FirstName, u.LastName)
}

// Takecareperson 被照护人（对应 takecareperson 表），Status=1 表示启用
type Takecareperson struct {
	TakecareID int64  `json:"takecare_id" db:"takecare_id"`
	UsersID    int64  `json:"users_id" db:"users_id"`
	FirstName  string `json:"takecare_fname" db:"takecare_fname"`
	LastName   string `json:"takecare_sname" db:"takecare_sname"`
	Tel        string `json:"takecare_tel1" db:"takecare_tel1"`
	Status     int    `json:"takecare_status" db:"takecare_status"`
}

// FullName 姓名
func (t *Takecareperson) FullName() string {
	return joinName(t.FirstName, t.LastName)
}

// GroupLine 响应者 LINE 群组（对应 groupline 表），Status=1 表示启用
type GroupLine struct {
	GroupID     int64  `json:"group_id" db:"group_id"`
	GroupLineID string `json:"group_line_id" db:"group_line_id"`
	GroupName   string `json:"group_name" db:"group_name"`
	Status      int    `json:"group_status" db:"group_status"`
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}
