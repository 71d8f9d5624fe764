package scoring

import (
	"github.com/clinic-assessment-server/internal/domain"
)

// DefaultCatalog returns the checklist used by the clinic: 13 categories,
// 79 questions. The maximum score is 189 for female patients and 174 for
// male patients, who do not see the menstrual category.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultSections, defaultCategories, defaultTiers)
	if err != nil {
		panic("scoring: invalid built-in catalog: " + err.Error())
	}
	return c
}

var defaultSections = []Section{
	{
		ID:          "functional",
		Title:       "Functional health",
		Description: "Digestion, sleep, elimination, body fluids, temperature and mood",
		CategoryIDs: []string{"digestion", "sleep", "bowel", "urinary", "moisture", "temperature", "mental", "menstrual"},
	},
	{
		ID:          "structural",
		Title:       "Structural symptoms by body region",
		Description: "Head, chest, abdomen, limbs, joints and spine",
		CategoryIDs: []string{"head", "chest", "abdomen", "limbs", "spine"},
	},
}

var defaultCategories = []Category{
	{
		ID:          "digestion",
		Name:        "Digestion",
		Description: "Check any digestive symptoms",
		Questions: []Question{
			{ID: "d1", Text: "Food often sits heavily or causes indigestion", Weight: 3},
			{ID: "d2", Text: "Frequent nausea", Weight: 3},
			{ID: "d3", Text: "Frequent belching", Weight: 2},
			{ID: "d4", Text: "Poor or irregular appetite", Weight: 2},
			{ID: "d5", Text: "Bloating and gas", Weight: 2},
			{ID: "d6", Text: "Drowsy or tired after meals", Weight: 3},
		},
	},
	{
		ID:          "sleep",
		Name:        "Sleep",
		Description: "Check any sleep-related symptoms",
		Questions: []Question{
			{ID: "s1", Text: "Takes more than 30 minutes to fall asleep", Weight: 3},
			{ID: "s2", Text: "Wakes up often during the night", Weight: 3},
			{ID: "s3", Text: "Wakes early and cannot fall back asleep", Weight: 2},
			{ID: "s4", Text: "Not refreshed after sleeping", Weight: 2},
			{ID: "s5", Text: "Dreams a lot", Weight: 1},
			{ID: "s6", Text: "Sleepy during the day", Weight: 1},
			{ID: "s7", Text: "Currently taking sleeping pills", Weight: 3},
		},
	},
	{
		ID:          "bowel",
		Name:        "Bowel",
		Description: "Check any bowel symptoms",
		Questions: []Question{
			{ID: "b1", Text: "Constipation (no movement for 3+ days)", Weight: 3},
			{ID: "b2", Text: "Frequent diarrhea", Weight: 3},
			{ID: "b3", Text: "Thin stools or incomplete evacuation", Weight: 2},
			{ID: "b4", Text: "Frequent bowel sounds", Weight: 1},
			{ID: "b5", Text: "Frequent abdominal pain", Weight: 3},
			{ID: "b6", Text: "Diagnosed with irritable bowel syndrome", Weight: 2},
		},
	},
	{
		ID:          "urinary",
		Name:        "Urinary",
		Description: "Check any urinary symptoms",
		Questions: []Question{
			{ID: "u1", Text: "Urinates 8+ times a day", Weight: 3},
			{ID: "u2", Text: "Wakes at night to urinate", Weight: 2},
			{ID: "u3", Text: "Sudden urgency", Weight: 2},
			{ID: "u4", Text: "Discomfort when urinating", Weight: 3},
			{ID: "u5", Text: "Feeling of residual urine", Weight: 1},
			{ID: "u6", Text: "Difficulty holding urine", Weight: 2},
		},
	},
	{
		ID:          "moisture",
		Name:        "Fluids (sweat and swelling)",
		Description: "Check any sweating or swelling symptoms",
		Questions: []Question{
			{ID: "m1", Text: "Face, hands or feet swell easily", Weight: 2},
			{ID: "m2", Text: "Strong thirst", Weight: 2},
			{ID: "m3", Text: "Sweats heavily", Weight: 3},
			{ID: "m4", Text: "Night sweats", Weight: 3},
			{ID: "m5", Text: "Dry mouth", Weight: 1},
			{ID: "m6", Text: "Thirst persists after drinking", Weight: 2},
		},
	},
	{
		ID:          "temperature",
		Name:        "Cold and heat",
		Description: "Check any symptoms of feeling cold or hot",
		Questions: []Question{
			{ID: "t1", Text: "Cold hands and feet", Weight: 3},
			{ID: "t2", Text: "Sensitive to cold", Weight: 2},
			{ID: "t3", Text: "Cold lower abdomen", Weight: 3},
			{ID: "t4", Text: "Facial flushing or heat in the upper body", Weight: 2},
			{ID: "t5", Text: "Sensitive to heat", Weight: 2},
			{ID: "t6", Text: "Feels feverish", Weight: 3},
		},
	},
	{
		ID:          "mental",
		Name:        "Mood and stress",
		Description: "Check any emotional symptoms",
		Questions: []Question{
			{ID: "mt1", Text: "Heart palpitations", Weight: 3},
			{ID: "mt2", Text: "Anxious or restless", Weight: 3},
			{ID: "mt3", Text: "Low mood or lack of motivation", Weight: 3},
			{ID: "mt4", Text: "Easily irritated", Weight: 2},
			{ID: "mt5", Text: "Poor concentration", Weight: 2},
			{ID: "mt6", Text: "Increasing forgetfulness", Weight: 2},
		},
	},
	{
		ID:          "menstrual",
		Name:        "Menstruation",
		Description: "Check any menstrual symptoms",
		Gender:      domain.GenderFemale,
		Questions: []Question{
			{ID: "mn1", Text: "Severe menstrual pain", Weight: 3},
			{ID: "mn2", Text: "Irregular cycle", Weight: 3},
			{ID: "mn3", Text: "Unusually heavy or light flow", Weight: 2},
			{ID: "mn4", Text: "Premenstrual syndrome", Weight: 2},
			{ID: "mn5", Text: "Headache or dizziness during menstruation", Weight: 3},
			{ID: "mn6", Text: "Menopausal symptoms", Weight: 2},
		},
	},
	{
		ID:          "head",
		Name:        "Head and face",
		Description: "Check any head or face symptoms",
		Questions: []Question{
			{ID: "h1", Text: "Frequent headaches", Weight: 3},
			{ID: "h2", Text: "Dizziness", Weight: 3},
			{ID: "h3", Text: "Tired or blurry eyes", Weight: 2},
			{ID: "h4", Text: "Ringing in the ears", Weight: 2},
			{ID: "h5", Text: "Blocked nose or rhinitis", Weight: 1},
			{ID: "h6", Text: "Facial pain or jaw joint discomfort", Weight: 3},
		},
	},
	{
		ID:          "chest",
		Name:        "Chest",
		Description: "Check any chest symptoms",
		Questions: []Question{
			{ID: "c1", Text: "Tightness in the chest", Weight: 3},
			{ID: "c2", Text: "Shortness of breath", Weight: 3},
			{ID: "c3", Text: "Chest pain", Weight: 3},
			{ID: "c4", Text: "Frequent cough", Weight: 1},
			{ID: "c5", Text: "Excess phlegm", Weight: 1},
			{ID: "c6", Text: "Sighs often", Weight: 2},
		},
	},
	{
		ID:          "abdomen",
		Name:        "Abdomen",
		Description: "Check any abdominal symptoms",
		Questions: []Question{
			{ID: "ab1", Text: "Discomfort in the upper stomach", Weight: 3},
			{ID: "ab2", Text: "Stiffness in the flanks", Weight: 2},
			{ID: "ab3", Text: "Pain around the navel", Weight: 3},
			{ID: "ab4", Text: "Discomfort in the lower abdomen", Weight: 2},
			{ID: "ab5", Text: "Frequent distension", Weight: 2},
			{ID: "ab6", Text: "Tender spot when pressed", Weight: 3},
		},
	},
	{
		ID:          "limbs",
		Name:        "Arms and legs",
		Description: "Check any symptoms in the arms or legs",
		Questions: []Question{
			{ID: "l1", Text: "Numbness in hands or feet", Weight: 3},
			{ID: "l2", Text: "Heavy limbs", Weight: 2},
			{ID: "l3", Text: "Wrist or elbow pain", Weight: 3},
			{ID: "l4", Text: "Frequent leg cramps", Weight: 2},
			{ID: "l5", Text: "Swollen calves", Weight: 2},
			{ID: "l6", Text: "Weakness in arms or legs", Weight: 3},
		},
	},
	{
		ID:          "spine",
		Name:        "Joints and spine",
		Description: "Check any joint or spine symptoms",
		Questions: []Question{
			{ID: "sp1", Text: "Stiff or painful neck", Weight: 3},
			{ID: "sp2", Text: "Shoulder pain", Weight: 3},
			{ID: "sp3", Text: "Back pain", Weight: 3},
			{ID: "sp4", Text: "Lower back pain", Weight: 3},
			{ID: "sp5", Text: "Knee pain", Weight: 3},
			{ID: "sp6", Text: "Clicking or stiff joints", Weight: 2},
		},
	},
}

var defaultTiers = []Tier{
	{
		Level:           1,
		Label:           "Tier 1: Initial management",
		UpperBound:      30,
		RequiresInDepth: false,
		Description:     "Symptoms are mild. Regular check-ups and lifestyle management are recommended.",
		Treatments:      []string{"Lifestyle guidance", "Acupuncture", "Moxibustion"},
	},
	{
		Level:           2,
		Label:           "Tier 2: Active treatment",
		UpperBound:      50,
		RequiresInDepth: true,
		Description:     "Several symptoms affect daily life. Active treatment alongside lifestyle changes is recommended.",
		Treatments:      []string{"Acupuncture", "Cupping", "Short-course herbal medicine", "Pharmacopuncture"},
	},
	{
		Level:           3,
		Label:           "Tier 3: Intensive treatment",
		UpperBound:      80,
		RequiresInDepth: true,
		Description:     "Symptoms span multiple systems. An intensive, personalised treatment plan is recommended.",
		Treatments:      []string{"Personalised herbal medicine", "Pharmacopuncture", "Chuna manual therapy", "Electro-acupuncture"},
	},
	{
		Level:           4,
		Label:           "Tier 4: Deep treatment",
		UpperBound:      100,
		RequiresInDepth: true,
		Description:     "Focused care is needed. An in-depth consultation and a tailored deep treatment programme are strongly recommended.",
		Treatments:      []string{"In-depth herbal consultation", "Intensive herbal programme", "Pharmacopuncture", "Chuna manual therapy"},
	},
}
