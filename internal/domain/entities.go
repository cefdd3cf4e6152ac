package domain

import "time"

// TermStatus описывает жизненный цикл записи поискового термина.
type TermStatus string

const (
	// StatusInProgress — запись доступна для правок аналитика.
	StatusInProgress TermStatus = "in_progress"
	// StatusLocked — терминальное состояние, правки категорий запрещены.
	StatusLocked TermStatus = "locked"
)

// TermType — класс конфигурации термина, выводится из пересечения категорий.
type TermType string

const (
	// TermTypeBoosting — каталожные и модельные категории пересекаются.
	TermTypeBoosting TermType = "boostingConfiguration"
	// TermTypeFilter — пересечения нет, категории работают как фильтр.
	TermTypeFilter TermType = "filterConfiguration"
)

// EditAction — тип события в истории правок.
type EditAction string

const (
	EditCreated         EditAction = "created"
	EditBoostUpdate     EditAction = "boost_update"
	EditCategoryAdded   EditAction = "category_added"
	EditCategoryRemoved EditAction = "category_removed"
	EditPromoted        EditAction = "promoted_to_main"
	EditAutoLocked      EditAction = "auto_locked"
)

// TrendType — метка динамики CTR термина.
type TrendType string

const (
	TrendImprovement     TrendType = "improvement"
	TrendUnderperforming TrendType = "underperforming"
	TrendNeutral         TrendType = "neutral"
)

// CategoryRef — запись каталога C3-категорий (код уникален).
type CategoryRef struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// CatalogCategory — категория из фасета маркетплейса с числом товаров.
// Создаётся только скрейпером и никогда не редактируется вручную.
type CatalogCategory struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ModelCategory — категория, предсказанная моделью.
// Score фиксируется при создании; 0 зарезервирован для ручных записей.
// BoostValue редактируется аналитиком, 0 исключает категорию из фильтрации.
type ModelCategory struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Score      int    `json:"score"`
	BoostValue int    `json:"boostValue"`
}

// EditEvent — одна запись истории правок, только добавляется.
type EditEvent struct {
	Timestamp time.Time  `json:"timestamp"`
	Action    EditAction `json:"action"`
	Details   string     `json:"details"`
}

// TermRecord — агрегат по поисковому термину.
type TermRecord struct {
	SearchTerm        string
	CatalogCategories []CatalogCategory
	ModelCategories   []ModelCategory
	Status            TermStatus
	TermType          TermType
	CreatedDate       time.Time
	UpdatedDate       time.Time
	EditHistory       []EditEvent
}

// TrendRecord — дневные ряды CTR/CVR термина; массивы параллельны Timestamps.
type TrendRecord struct {
	SearchTerm  string
	CTR         []float64
	CVR         []float64
	Timestamps  []string
	TrendType   TrendType
	LastUpdated time.Time
}

// Prediction — одна категория из ответа классификатора.
type Prediction struct {
	Code  string
	Name  string
	Score int
}

// TokenUsage — статистика токенов генеративной модели.
type TokenUsage struct {
	PromptTokens    int
	CandidateTokens int
	TotalTokens     int
}

// Classification — результат классификации одного термина.
type Classification struct {
	Term        string
	Uncertain   bool
	Predictions []Prediction
	Usage       TokenUsage
}

// Product — нормализованный товар из поисковой выдачи.
type Product struct {
	ID     string
	Name   string
	Image  string
	Price  float64
	Rating float64
	URL    string
}

// ProductQuery — параметры запроса товаров: либо сырой термин,
// либо только фильтры по кодам категорий.
type ProductQuery struct {
	SearchTerm string
	Categories []string
	Page       int
	Limit      int
}

// TrendStats — сводка по рядам тренда для дашборда.
type TrendStats struct {
	AvgCTR       float64
	AvgCVR       float64
	LatestCTR    float64
	LatestCVR    float64
	CTRChangePct float64
	CVRChangePct float64
}
