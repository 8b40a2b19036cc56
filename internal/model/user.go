package model

// ImageSource — откуда берётся аватар. Всё, кроме MONOGRAM, означает загруженную картинку.
type ImageSource string

// ImageSourceMonogram — аватар из инициалов, картинки нет.
const ImageSourceMonogram ImageSource = "MONOGRAM"

// IsMonogram возвращает true, если картинки нет (пустой источник тоже считаем монограммой).
func (s ImageSource) IsMonogram() bool {
	return s == ImageSourceMonogram || s == ""
}

type User struct {
	ID                 string      `mapstructure:"-" json:"id"`
	Nickname           string      `mapstructure:"nickname" json:"nickname"`
	ProfileImage       string      `mapstructure:"profileImage" json:"profileImage"`
	ProfileImageSource ImageSource `mapstructure:"profileImageSource" json:"profileImageSource"`
}

// DecodeUser разбирает документ коллекции users.
func DecodeUser(id string, data map[string]any) (*User, error) {
	u := &User{ID: id}
	if err := decode(data, u); err != nil {
		return nil, malformed("users", id, err)
	}
	if u.Nickname == "" {
		return nil, missing("users", id, "nickname")
	}
	return u, nil
}
