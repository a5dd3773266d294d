// 包 mapper 将上游 API 的枚举字符串转换为 model 中的规范枚举。
// 每个映射都是封闭的查表：表外的任何取值（包括空串）一律返回 ErrUnknownEnumValue。
package mapper

import (
	"errors"
	"fmt"

	"go-clan-tracker/internal/model"
)

// ErrUnknownEnumValue 表示上游返回了未识别的枚举值。
var ErrUnknownEnumValue = errors.New("unknown enum value")

// UnknownEnumError 携带字段名与原始取值，errors.Is 可匹配 ErrUnknownEnumValue。
type UnknownEnumError struct {
	Field string
	Value string
}

func (e *UnknownEnumError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Field, e.Value)
}

func (e *UnknownEnumError) Unwrap() error { return ErrUnknownEnumValue }

// API 对 elder/co-leader 使用 admin/coLeader 拼写，两种写法都接受。
var roles = map[string]model.Role{
	"member":    model.RoleMember,
	"admin":     model.RoleElder,
	"elder":     model.RoleElder,
	"coLeader":  model.RoleCoLeader,
	"co_leader": model.RoleCoLeader,
	"leader":    model.RoleLeader,
}

var clanTypes = map[string]model.ClanType{
	"inviteOnly": model.ClanTypeInviteOnly,
	"closed":     model.ClanTypeClosed,
	"open":       model.ClanTypeOpen,
}

var warFrequencies = map[string]model.WarFrequency{
	"always":              model.WarFrequencyAlways,
	"moreThanOncePerWeek": model.WarFrequencyMoreThanOncePerWeek,
	"oncePerWeek":         model.WarFrequencyOncePerWeek,
	"lessThanOncePerWeek": model.WarFrequencyLessThanOncePerWeek,
	"never":               model.WarFrequencyNever,
}

var warTypes = map[string]model.WarType{
	"random":   model.WarTypeRandom,
	"friendly": model.WarTypeFriendly,
	"cwl":      model.WarTypeLeague,
}

// tied 优先映射为 TIE；进行中的平局同样以 tied 上报，后续轮次会覆盖。
var warResults = map[string]model.WarResult{
	"won":     model.WarResultWin,
	"lost":    model.WarResultLoss,
	"tied":    model.WarResultTie,
	"winning": model.WarResultInProgress,
	"losing":  model.WarResultInProgress,
}

func lookup[T any](table map[string]T, field, v string) (T, error) {
	if out, ok := table[v]; ok {
		return out, nil
	}
	var zero T
	return zero, &UnknownEnumError{Field: field, Value: v}
}

func Role(v string) (model.Role, error) { return lookup(roles, "role", v) }

func ClanType(v string) (model.ClanType, error) { return lookup(clanTypes, "clan type", v) }

func WarFrequency(v string) (model.WarFrequency, error) {
	return lookup(warFrequencies, "war frequency", v)
}

func WarType(v string) (model.WarType, error) { return lookup(warTypes, "war type", v) }

func WarResult(v string) (model.WarResult, error) { return lookup(warResults, "war result", v) }
