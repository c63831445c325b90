package scoring

import (
	"testing"

	"github.com/courtside/matchplay/models"
	"github.com/stretchr/testify/assert"
)

func ptrF(v float64) *float64 { return &v }

func ptrS(s models.SkillLevel) *models.SkillLevel { return &s }

func TestDistanceKm_IdentityAndSymmetry(t *testing.T) {
	p := models.GeoPoint{Lat: 50.45, Lon: 30.52}
	q := models.GeoPoint{Lat: 49.84, Lon: 24.03}

	assert.Zero(t, DistanceKm(p, p))
	assert.InDelta(t, DistanceKm(p, q), DistanceKm(q, p), 1e-9)
	assert.GreaterOrEqual(t, DistanceKm(p, q), 0.0)
}

func TestDistanceKm_KnownDistance(t *testing.T) {
	// Париж - Лондон, около 344 км по большому кругу.
	paris := models.GeoPoint{Lat: 48.8566, Lon: 2.3522}
	london := models.GeoPoint{Lat: 51.5074, Lon: -0.1278}

	assert.InDelta(t, 344, DistanceKm(paris, london), 5)
}

func TestCompatibilityScore_WorkedExample(t *testing.T) {
	// Рейтинги 1500 и 1540, одинаковый уровень, 5 км:
	// 100 - 4 - 0 - 2.5 = 93.5.
	a := PlayerProfile{Rating: ptrF(1500), Skill: ptrS(models.SkillIntermediate)}
	b := PlayerProfile{Rating: ptrF(1540), Skill: ptrS(models.SkillIntermediate)}

	assert.InDelta(t, 93.5, CompatibilityScore(a, b, ptrF(5)), 1e-9)
}

func TestCompatibilityScore_Symmetry(t *testing.T) {
	a := PlayerProfile{Rating: ptrF(1320), Skill: ptrS(models.SkillAdvanced)}
	b := PlayerProfile{Rating: ptrF(1710), Skill: ptrS(models.SkillBeginner)}
	d := ptrF(12.3)

	assert.Equal(t, CompatibilityScore(a, b, d), CompatibilityScore(b, a, d))
}

func TestCompatibilityScore_Caps(t *testing.T) {
	a := PlayerProfile{Rating: ptrF(1000), Skill: ptrS(models.SkillBeginner)}
	b := PlayerProfile{Rating: ptrF(3000), Skill: ptrS(models.SkillBeginner)}

	// Рейтинговый штраф упирается в 30, дистанционный - в 20.
	assert.Equal(t, 70.0, CompatibilityScore(a, b, nil))
	assert.Equal(t, 50.0, CompatibilityScore(a, b, ptrF(500)))
}

func TestCompatibilityScore_AllPenaltiesStack(t *testing.T) {
	// Все три штрафа в потолке: 100 - 30 - 40 - 20 = 10. Суммарный потолок
	// штрафов равен 90, поэтому через входные данные ниже 10 не опуститься.
	a := PlayerProfile{Rating: ptrF(1000), Skill: ptrS(models.SkillBeginner)}
	b := PlayerProfile{Rating: ptrF(3000), Skill: ptrS(models.SkillPro)}

	assert.Equal(t, 10.0, CompatibilityScore(a, b, ptrF(100)))
}

func TestClampScore_FlooredAtZero(t *testing.T) {
	cases := []struct {
		raw  float64
		want float64
	}{
		{raw: 93.5, want: 93.5},
		{raw: 10, want: 10},
		{raw: 0, want: 0},
		{raw: -0.5, want: 0},
		{raw: -120, want: 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, clampScore(tc.raw))
	}
}

func TestCompatibilityScore_NeverNegative(t *testing.T) {
	extremes := []PlayerProfile{
		{},
		{Rating: ptrF(-5000), Skill: ptrS(models.SkillBeginner)},
		{Rating: ptrF(99999), Skill: ptrS(models.SkillPro)},
	}
	for _, a := range extremes {
		for _, b := range extremes {
			assert.GreaterOrEqual(t, CompatibilityScore(a, b, ptrF(1e6)), 0.0)
		}
	}
}

func TestCompatibilityScore_Defaults(t *testing.T) {
	// Пустые профили: рейтинги совпадают (midpoint), уровни совпадают
	// (beginner), дистанции нет - полный балл.
	assert.Equal(t, MaxScore, CompatibilityScore(PlayerProfile{}, PlayerProfile{}, nil))

	// Известный рейтинг против отсутствующего меряется относительно midpoint.
	a := PlayerProfile{Rating: ptrF(DefaultRating + 100)}
	assert.Equal(t, MaxScore-10, CompatibilityScore(a, PlayerProfile{}, nil))
}

func TestCompatibilityScore_NoDistanceNoPenalty(t *testing.T) {
	a := PlayerProfile{Rating: ptrF(1500), Skill: ptrS(models.SkillExpert)}
	b := PlayerProfile{Rating: ptrF(1500), Skill: ptrS(models.SkillExpert)}

	assert.Equal(t, MaxScore, CompatibilityScore(a, b, nil))
}
