package ipam

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"warden/internal/models"

	"gorm.io/gorm"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

// CreateRootPrefix — корневой префикс организации (без родителя).
func (r *Repo) CreateRootPrefix(orgID uint, cidr, note string) (*models.Prefix, error) {
	cidr = strings.TrimSpace(cidr)
	ip, nw, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, err
	}
	family := "ipv4"
	if ip.To4() == nil {
		family = "ipv6" // v6 в калькуляторе пока не делим
	}
	p := &models.Prefix{OrgID: orgID, CIDR: nw.String(), ParentID: nil, Family: family, Note: note}
	return p, r.db.Create(p).Error
}

func (r *Repo) GetPrefix(id uint) (*models.Prefix, error) {
	var p models.Prefix
	if err := r.db.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) ListRoots(orgID uint) ([]models.Prefix, error) {
	var out []models.Prefix
	err := r.db.Where("org_id = ? AND parent_id IS NULL", orgID).Order("id").Find(&out).Error
	return out, err
}

func (r *Repo) ListChildren(parentID uint) ([]models.Prefix, error) {
	var out []models.Prefix
	err := r.db.Where("parent_id = ?", parentID).Order("id").Find(&out).Error
	return out, err
}

// AllocateChild — следующий свободный дочерний префикс заданной длины.
// Только IPv4.
func (r *Repo) AllocateChild(parentID uint, newPrefixLen int, note string) (*models.Prefix, error) {
	parent, err := r.GetPrefix(parentID)
	if err != nil {
		return nil, err
	}

	_, parentNet, err := net.ParseCIDR(parent.CIDR)
	if err != nil {
		return nil, err
	}
	if parentNet.IP.To4() == nil {
		return nil, errors.New("ipv6 division not implemented yet")
	}

	parentOnes, _ := parentNet.Mask.Size()
	if newPrefixLen <= parentOnes || newPrefixLen > 32 {
		return nil, fmt.Errorf("invalid new_prefix_len: %d", newPrefixLen)
	}

	var existing []models.Prefix
	if err := r.db.Where("parent_id = ?", parentID).Find(&existing).Error; err != nil {
		return nil, err
	}

	// занятые сетевые адреса детей этой длины
	occupied := map[uint32]bool{}
	for _, c := range existing {
		_, n, e := net.ParseCIDR(c.CIDR)
		if e != nil {
			continue
		}
		ones, _ := n.Mask.Size()
		if ones == newPrefixLen {
			occupied[ip4ToUint(n.IP.To4())] = true
		}
	}

	size := uint32(1) << uint(32-newPrefixLen)
	start := ip4ToUint(parentNet.IP.To4())
	end := start + (uint32(1) << uint(32-parentOnes)) - 1

	for netAddr := start; netAddr+size-1 <= end; netAddr += size {
		if occupied[netAddr] {
			continue
		}
		child := &models.Prefix{
			OrgID:    parent.OrgID,
			CIDR:     fmt.Sprintf("%s/%d", uintToIP4(netAddr).String(), newPrefixLen),
			ParentID: &parentID,
			Family:   "ipv4",
			Note:     note,
		}
		if err := r.db.Create(child).Error; err != nil {
			return nil, err
		}
		return child, nil
	}
	return nil, errors.New("no free child prefix available")
}

// AssignIPToDevice — выдать устройству следующий свободный IP из префикса.
func (r *Repo) AssignIPToDevice(prefixID uint, deviceUUID string) (*models.DeviceIP, error) {
	pfx, err := r.GetPrefix(prefixID)
	if err != nil {
		return nil, err
	}

	ip, nw, err := net.ParseCIDR(pfx.CIDR)
	if err != nil {
		return nil, err
	}
	if ip.To4() == nil {
		return nil, errors.New("ipv6 allocation not implemented yet")
	}
	ones, bits := nw.Mask.Size()
	if bits != 32 {
		return nil, errors.New("unexpected mask size")
	}

	// .0 сеть, .1 шлюз, последний — broadcast
	netU := ip4ToUint(nw.IP.To4())
	first := netU + 2
	last := netU + (uint32(1) << uint(32-ones)) - 2

	var taken []models.DeviceIP
	if err := r.db.Where("prefix_id = ?", pfx.ID).Find(&taken).Error; err != nil {
		return nil, err
	}
	occ := map[uint32]bool{
		netU:     true,
		netU + 1: true,
		netU + (uint32(1) << uint(32-ones)) - 1: true,
	}
	for _, t := range taken {
		if tip := net.ParseIP(t.Address).To4(); tip != nil {
			occ[ip4ToUint(tip)] = true
		}
	}

	for u := first; u <= last; u++ {
		if occ[u] {
			continue
		}
		rec := &models.DeviceIP{DeviceUUID: deviceUUID, PrefixID: pfx.ID, Address: uintToIP4(u).String()}
		if err := r.db.Create(rec).Error; err != nil {
			return nil, err
		}
		return rec, nil
	}
	return nil, errors.New("no free ip in prefix")
}

func (r *Repo) DeviceIPs(deviceUUID string) ([]models.DeviceIP, error) {
	var out []models.DeviceIP
	err := r.db.Where("device_uuid = ?", deviceUUID).Order("id").Find(&out).Error
	return out, err
}

// ReleaseDeviceIP — снять назначение (удалить запись).
func (r *Repo) ReleaseDeviceIP(id uint) error {
	return r.db.Delete(&models.DeviceIP{}, id).Error
}

// Helpers IPv4
func ip4ToUint(ip net.IP) uint32 {
	ip = ip.To4()
	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
}

func uintToIP4(u uint32) net.IP {
	return net.IPv4(byte(u>>24), byte(u>>16), byte(u>>8), byte(u))
}
