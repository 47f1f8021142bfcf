package utils

import (
	"crypto/rand"
	"crypto/sha256"
	mrand "math/rand"
	"time"

	"github.com/mozillazg/go-pinyin"
	"github.com/mr-tron/base58"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[mrand.Intn(len(commonSurnames))]
	nameLength := mrand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[mrand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, pinyin := range pinyinArray {
		length := mrand.Intn(len(pinyin)) + 1
		username += pinyin[:length]
	}

	digitsLength := mrand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[mrand.Intn(len(digits))])
	}

	return username
}

func GenerateRandomUser(password string, emailDomainName string) (*domain.User, error) {
	fullName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FullName:     fullName,
		Email:        username + "@" + emailDomainName,
		Role:         domain.RoleEmployee,
	}

	token, err := GenerateQRToken()
	if err != nil {
		return nil, err
	}
	user.QRToken = token

	return user, nil
}

// GenerateQRToken 生成员工二维码中携带的令牌，令牌与用户名无关，泄露后可以重新生成
func GenerateQRToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	sum := sha256.Sum256(buf)
	return "mq_" + base58.Encode(sum[:]), nil
}

var mainDishes = []string{
	"红烧肉", "宫保鸡丁", "鱼香肉丝", "番茄炒蛋", "糖醋排骨", "麻婆豆腐",
	"清蒸鲈鱼", "回锅肉", "土豆烧牛肉", "黄焖鸡", "可乐鸡翅", "香菇滑鸡",
}
var alternativeDishes = []string{
	"素炒时蔬", "蒜蓉西兰花", "凉拌黄瓜", "清炒豆芽", "干煸四季豆", "地三鲜",
}
var breakfastDishes = []string{"豆浆油条", "小笼包", "皮蛋瘦肉粥", "鸡蛋灌饼", "肠粉", "豆腐脑"}
var snackDishes = []string{"水果拼盘", "酸奶", "绿豆糕", "蛋挞", "烤红薯"}
var desserts = []string{"双皮奶", "芒果布丁", "红豆沙", "银耳羹", "杨枝甘露"}
var dietTags = []string{"vegetarian", "halal", "low_sugar", "gluten_free", "spicy"}

func pick(options []string) string {
	return options[mrand.Intn(len(options))]
}

// GenerateRandomMenuItem 随机生成某一天某个餐次的菜单，大约一半的菜单带有备选菜
func GenerateRandomMenuItem(date time.Time, slot domain.MealSlot) *domain.MenuItem {
	menu := &domain.MenuItem{
		Date:     domain.DateOf(date),
		MealSlot: slot,
	}

	switch slot {
	case domain.MealSlotBreakfast:
		menu.MainDish = pick(breakfastDishes)
	case domain.MealSlotSnack:
		menu.MainDish = pick(snackDishes)
	default:
		menu.MainDish = pick(mainDishes)
		if mrand.Intn(2) == 0 {
			alternative := pick(alternativeDishes)
			menu.AlternativeDish = &alternative
		}
		if mrand.Intn(3) == 0 {
			dessert := pick(desserts)
			menu.Dessert = &dessert
		}
	}

	if mrand.Intn(4) == 0 {
		menu.SpecialDietTags = []string{pick(dietTags)}
	}

	return menu
}
