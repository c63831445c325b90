package models

// SkillLevel представляет уровень игрока, соответствующий ENUM в БД.
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
	SkillExpert       SkillLevel = "expert"
	SkillPro          SkillLevel = "pro"
)

// skillOrder фиксирует порядок уровней; позиция используется при скоринге
// и при проверке диапазонов [min,max].
var skillOrder = []SkillLevel{
	SkillBeginner,
	SkillIntermediate,
	SkillAdvanced,
	SkillExpert,
	SkillPro,
}

// Index возвращает порядковый номер уровня. Неизвестный уровень считается
// самым низким (0).
func (s SkillLevel) Index() int {
	for i, lvl := range skillOrder {
		if lvl == s {
			return i
		}
	}
	return 0
}

func (s SkillLevel) Valid() bool {
	for _, lvl := range skillOrder {
		if lvl == s {
			return true
		}
	}
	return false
}

// InRange проверяет, попадает ли уровень в диапазон [min,max].
// nil-граница означает отсутствие ограничения с этой стороны.
func (s SkillLevel) InRange(min, max *SkillLevel) bool {
	idx := s.Index()
	if min != nil && idx < min.Index() {
		return false
	}
	if max != nil && idx > max.Index() {
		return false
	}
	return true
}
