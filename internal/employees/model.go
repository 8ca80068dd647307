// Package employees stores employee records in a JSON file.
package employees

// Employee is a stored employee record.
type Employee struct {
	ID             string  `json:"_id"`
	LastName       string  `json:"lastname"`
	FirstName      string  `json:"firstname"`
	Team           string  `json:"team"`
	Age            *int    `json:"age,omitempty"`
	FavoriteAnimal *string `json:"favorite_animal,omitempty"`
	Hobby          *string `json:"hobby,omitempty"`
}

// CreateForm is the payload accepted when creating an employee.
type CreateForm struct {
	LastName       string  `json:"lastname" validate:"required"`
	FirstName      string  `json:"firstname" validate:"required"`
	Team           string  `json:"team" validate:"required"`
	Age            *int    `json:"age,omitempty" validate:"omitempty,gte=0,lte=150"`
	FavoriteAnimal *string `json:"favorite_animal,omitempty"`
	Hobby          *string `json:"hobby,omitempty"`
}

// UpdateForm is a partial update. Nil fields are left untouched.
type UpdateForm struct {
	LastName       *string `json:"lastname,omitempty" validate:"omitempty,min=1"`
	FirstName      *string `json:"firstname,omitempty" validate:"omitempty,min=1"`
	Team           *string `json:"team,omitempty" validate:"omitempty,min=1"`
	Age            *int    `json:"age,omitempty" validate:"omitempty,gte=0,lte=150"`
	FavoriteAnimal *string `json:"favorite_animal,omitempty"`
	Hobby          *string `json:"hobby,omitempty"`
}

// Filter selects employees. Empty fields match anything.
type Filter struct {
	ID        string
	LastName  string
	FirstName string
	Team      string
}

func (f Filter) match(e Employee) bool {
	return (f.ID == "" || f.ID == e.ID) &&
		(f.LastName == "" || f.LastName == e.LastName) &&
		(f.FirstName == "" || f.FirstName == e.FirstName) &&
		(f.Team == "" || f.Team == e.Team)
}

func (u UpdateForm) apply(e Employee) Employee {
	if u.LastName != nil {
		e.LastName = *u.LastName
	}
	if u.FirstName != nil {
		e.FirstName = *u.FirstName
	}
	if u.Team != nil {
		e.Team = *u.Team
	}
	if u.Age != nil {
		e.Age = u.Age
	}
	if u.FavoriteAnimal != nil {
		e.FavoriteAnimal = u.FavoriteAnimal
	}
	if u.Hobby != nil {
		e.Hobby = u.Hobby
	}
	return e
}

// asCreate turns an update into a creation form for upserts.
func (u UpdateForm) asCreate() CreateForm {
	f := CreateForm{Age: u.Age, FavoriteAnimal: u.FavoriteAnimal, Hobby: u.Hobby}
	if u.LastName != nil {
		f.LastName = *u.LastName
	}
	if u.FirstName != nil {
		f.FirstName = *u.FirstName
	}
	if u.Team != nil {
		f.Team = *u.Team
	}
	return f
}
