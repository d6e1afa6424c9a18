package models

// Book представляет книгу каталога. Счётчики Copies и CopiesAvailable
// изменяются только внутри транзакций займов и каталога:
// инвариант 0 <= CopiesAvailable <= Copies должен выполняться после каждой операции.
type Book struct {
	ID              int
	Title           string // Название книги (уникальное)
	Author          string
	CategoryID      *int // Категория, может отсутствовать
	Copies          int  // Общее количество физических экземпляров
	CopiesAvailable int  // Количество экземпляров не в займе
}

// Category представляет категорию книг.
type Category struct {
	ID   int
	Name string // Название категории (уникальное)
}

// Состояния экземпляра.
const (
	CopyConditionGood = "GOOD"
	CopyConditionBad  = "BAD"
)

// Copy представляет физический экземпляр книги.
// IsLoaned истинно тогда и только тогда, когда экземпляр привязан
// к займу в статусе REQUESTED или ONGOING.
type Copy struct {
	ID        int
	BookID    int
	ISBN      string // Проверяется контрольной суммой, уникальна
	Condition string // GOOD или BAD
	IsLoaned  bool
}

// DummyBook используется для приёма данных книги из JSON-запроса.
type DummyBook struct {
	Title      string `json:"title" validate:"required"`
	Author     string `json:"author" validate:"required"`
	CategoryID *int   `json:"category_id,omitempty"`
}

// DummyCopy используется для приёма данных экземпляра из JSON-запроса.
type DummyCopy struct {
	BookID    int    `json:"book_id" validate:"required"`
	ISBN      string `json:"isbn" validate:"required"`
	Condition string `json:"condition" validate:"required,oneof=GOOD BAD"`
}
