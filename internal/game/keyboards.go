package game

import "strconv"

// Подписи кнопок — словарь команд бота. Сравнение регистронезависимое,
// поэтому диспетчер сопоставляет их в нижнем регистре.
const (
	BtnSingleGame     = "Одиночная игра"
	BtnCreateGame     = "Создать игру"
	BtnCreateWithHost = "Игра с ведущим"
	BtnJoinGame       = "Присоединиться"
	BtnRules          = "Правила"
	BtnResults        = "Результаты"
	BtnQuit           = "Выйти"
	BtnStartGame      = "Начать игру"
	BtnNextCircle     = "Следующий круг"
	BtnStandardCol    = "Стандартная коллекция"
	BtnCustomCol      = "Своя коллекция"
)

// Keyboard — абстрактное описание клавиатуры: строки подписей кнопок.
// Пиксели рисует транспорт.
type Keyboard [][]string

// MenuKeyboard — главное меню.
func MenuKeyboard() Keyboard {
	return Keyboard{
		{BtnSingleGame},
		{BtnCreateGame, BtnCreateWithHost},
		{BtnJoinGame, BtnRules},
	}
}

// SessionKeyboard — кнопки внутри сессии.
func SessionKeyboard() Keyboard {
	return Keyboard{{BtnResults, BtnQuit}}
}

// WaitingKeyboard — кнопки создателя, пока сессия ждёт игроков.
func WaitingKeyboard() Keyboard {
	return Keyboard{{BtnStartGame}, {BtnQuit}}
}

// CollectionKeyboard — выбор коллекции при создании сессии.
func CollectionKeyboard() Keyboard {
	return Keyboard{{BtnStandardCol, BtnCustomCol}, {BtnQuit}}
}

// AnswersKeyboard — числа от 1 до count рядами по три,
// плюс сессионные кнопки последней строкой.
func AnswersKeyboard(count int) Keyboard {
	var kb Keyboard
	var row []string
	for n := 1; n <= count; n++ {
		row = append(row, strconv.Itoa(n))
		if len(row) >= 3 {
			kb = append(kb, row)
			row = nil
		}
	}
	if len(row) > 0 {
		kb = append(kb, row)
	}
	return append(kb, []string{BtnResults, BtnQuit})
}

// NextCircleKeyboard — переход к следующему кругу.
func NextCircleKeyboard() Keyboard {
	return Keyboard{{BtnNextCircle}, {BtnResults, BtnQuit}}
}
