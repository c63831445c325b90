package models

import "time"

type User struct {
	ID         int         `json:"id"`
	FirstName  string      `json:"first_name"`
	LastName   string      `json:"last_name"`
	Nickname   *string     `json:"nickname,omitempty"`
	Email      string      `json:"email"`
	SkillLevel *SkillLevel `json:"skill_level,omitempty"`
	// Rating - матчмейкинговый рейтинг (открытая шкала, ~1500 в центре),
	// обновляется внешним рейтинговым сервисом.
	Rating    *float64  `json:"rating,omitempty"`
	Location  *GeoPoint `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName возвращает имя для подстановки в названия команд и уведомления.
func (u *User) DisplayName() string {
	if u.Nickname != nil && *u.Nickname != "" {
		return *u.Nickname
	}
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name != "" {
		return name
	}
	return u.Email
}
