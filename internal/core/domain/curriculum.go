package domain

// Curriculum maps class level -> subject -> ordered chapter names.
type Curriculum map[string]map[string][]string

func (c Curriculum) Chapters(classLevel, subject string) []string {
	subjects, ok := c[classLevel]
	if !ok {
		return nil
	}
	return subjects[subject]
}

func DefaultCurriculum() Curriculum {
	return Curriculum{
		"9": {
			"Physics":     {"Motion", "Force and Pressure", "Work, Power and Energy", "Sound", "Light"},
			"Chemistry":   {"Matter and Its States", "Elements and Compounds", "Acids, Bases and Salts", "Chemical Reactions"},
			"Biology":     {"Cell and Its Structure", "Life Process", "Reproduction", "Heredity and Evolution"},
			"Mathematics": {"Real Numbers", "Sets and Functions", "Algebraic Expressions", "Indices and Logarithms", "Linear Equations"},
		},
		"10": {
			"Physics":     {"Heat and Temperature", "Waves and Sound", "Light and Optics", "Electricity and Magnetism", "Modern Physics"},
			"Chemistry":   {"Atomic Structure", "Periodic Table", "Chemical Bonding", "Metals and Non-metals", "Organic Chemistry"},
			"Biology":     {"Nutrition", "Respiration", "Transportation", "Excretion", "Control and Coordination"},
			"Mathematics": {"Trigonometry", "Geometry", "Coordinate Geometry", "Statistics", "Probability"},
		},
		"11": {
			"Physics":     {"Mechanics", "Thermal Physics", "Waves", "Electricity", "Magnetism"},
			"Chemistry":   {"General Chemistry", "Organic Chemistry", "Physical Chemistry", "Inorganic Chemistry"},
			"Biology":     {"Cell Biology", "Plant Biology", "Animal Biology", "Human Biology", "Ecology"},
			"Mathematics": {"Calculus", "Algebra", "Geometry", "Trigonometry", "Statistics"},
		},
		"12": {
			"Physics":     {"Advanced Mechanics", "Thermodynamics", "Electromagnetic Waves", "Modern Physics", "Electronics"},
			"Chemistry":   {"Advanced Organic Chemistry", "Physical Chemistry", "Inorganic Chemistry", "Environmental Chemistry"},
			"Biology":     {"Advanced Cell Biology", "Genetics", "Evolution", "Biotechnology", "Environmental Biology"},
			"Mathematics": {"Advanced Calculus", "Linear Algebra", "Differential Equations", "Probability", "Statistics"},
		},
	}
}
