// Package scoring - чистые функции подбора: гаверсинусное расстояние и
// эвристика совместимости игроков. Без состояния и без ошибок: отсутствующие
// рейтинг/уровень заменяются значениями по умолчанию до расчёта.
package scoring

import (
	"math"

	"github.com/courtside/matchplay/models"
)

const EarthRadiusKm = 6371.0

// Продуктовые константы штрафов. Значения подобраны продуктом, не выводятся;
// менять можно только все вместе с пересчётом ожиданий в тестах.
const (
	MaxScore = 100.0

	// Рейтинговый штраф: |Δrating|/RatingGapDivisor, не больше RatingGapCap.
	RatingGapDivisor = 10.0
	RatingGapCap     = 30.0

	// Штраф за каждый шаг разницы в уровне игры.
	SkillStepPenalty = 10.0

	// Дистанционный штраф: km/DistanceDivisor, не больше DistanceCap.
	DistanceDivisor = 2.0
	DistanceCap     = 20.0

	// DefaultRating - середина открытой рейтинговой шкалы, подставляется
	// при отсутствии рейтинга у игрока.
	DefaultRating = 1500.0
)

// PlayerProfile - то, что скорингу нужно знать об игроке.
type PlayerProfile struct {
	Rating *float64
	Skill  *models.SkillLevel
}

// ProfileOf собирает профиль из записи пользователя.
func ProfileOf(u *models.User) PlayerProfile {
	if u == nil {
		return PlayerProfile{}
	}
	return PlayerProfile{Rating: u.Rating, Skill: u.SkillLevel}
}

// DistanceKm - гаверсинусное расстояние по большому кругу.
// Симметрично, неотрицательно, ноль для совпадающих точек.
func DistanceKm(a, b models.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// CompatibilityScore возвращает оценку совместимости в [0,100].
// Старт со 100, далее вычитаются рейтинговый, уровневый и дистанционный
// штрафы; результат не опускается ниже нуля. distanceKm == nil означает,
// что взаимное расположение неизвестно - дистанционный штраф не начисляется.
func CompatibilityScore(a, b PlayerProfile, distanceKm *float64) float64 {
	penalty := math.Min(math.Abs(rating(a)-rating(b))/RatingGapDivisor, RatingGapCap)
	penalty += SkillStepPenalty * math.Abs(float64(skillIndex(a)-skillIndex(b)))

	if distanceKm != nil {
		penalty += math.Min(*distanceKm/DistanceDivisor, DistanceCap)
	}

	return clampScore(MaxScore - penalty)
}

// clampScore держит итог в [0,100] независимо от суммы штрафов.
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	return score
}

func rating(p PlayerProfile) float64 {
	if p.Rating == nil {
		return DefaultRating
	}
	return *p.Rating
}

func skillIndex(p PlayerProfile) int {
	if p.Skill == nil {
		return models.SkillBeginner.Index()
	}
	return p.Skill.Index()
}
