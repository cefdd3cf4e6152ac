package trends

import "semantic-sensei/internal/domain"

// trendWindow — длина окна последних точек CTR для вычисления тренда.
const trendWindow = 5

// changeThreshold — порог в процентах, после которого тренд считается значимым.
const changeThreshold = 1.0

// Classify возвращает тип тренда и процент изменения CTR по окну
// последних точек. Меньше trendWindow точек — нейтральный тренд.
func Classify(ctr []float64) (domain.TrendType, float64) {
	if len(ctr) < trendWindow {
		return domain.TrendNeutral, 0
	}
	window := ctr[len(ctr)-trendWindow:]
	first, last := window[0], window[len(window)-1]
	if first == 0 {
		return domain.TrendNeutral, 0
	}
	pct := (last - first) / first * 100
	switch {
	case pct > changeThreshold:
		return domain.TrendImprovement, pct
	case pct < -changeThreshold:
		return domain.TrendUnderperforming, pct
	default:
		return domain.TrendNeutral, pct
	}
}

// ConsecutiveGrowthDays возвращает число подряд идущих точек роста CTR,
// считая от конца ряда.
func ConsecutiveGrowthDays(ctr []float64) int {
	days := 0
	for i := len(ctr) - 1; i > 0; i-- {
		if ctr[i] <= ctr[i-1] {
			break
		}
		days++
	}
	return days
}

// Stats вычисляет сводку по рядам тренда для дашборда.
func Stats(rec domain.TrendRecord) domain.TrendStats {
	var stats domain.TrendStats
	if len(rec.CTR) > 0 {
		stats.AvgCTR = avg(rec.CTR)
		stats.LatestCTR = rec.CTR[len(rec.CTR)-1]
		if len(rec.CTR) > 1 {
			prev := rec.CTR[len(rec.CTR)-2]
			if prev != 0 {
				stats.CTRChangePct = (stats.LatestCTR - prev) / prev * 100
			}
		}
	}
	if len(rec.CVR) > 0 {
		stats.AvgCVR = avg(rec.CVR)
		stats.LatestCVR = rec.CVR[len(rec.CVR)-1]
		if len(rec.CVR) > 1 {
			prev := rec.CVR[len(rec.CVR)-2]
			if prev != 0 {
				stats.CVRChangePct = (stats.LatestCVR - prev) / prev * 100
			}
		}
	}
	return stats
}

func avg(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
