package store

import "github.com/factorylens/factorylens/internal/model"

// Locked helpers. Every function in this file assumes s.mu is held.

// attribute returns the file's index entry, creating it on first use.
func (s *Store) attribute(fileID string) *fileIndex {
	fi, ok := s.files[fileID]
	if !ok {
		fi = newFileIndex()
		s.files[fileID] = fi
	}
	return fi
}

// putFactory replaces any live entry under the factory's name. When the
// replaced entry came from a different file, its old attribution is
// cleared so the file index and the value cache stay consistent.
func (s *Store) putFactory(f *model.Factory) {
	if old, ok := s.factories[f.Name]; ok {
		s.unattributeFactory(old.value)
	}
	s.factories[f.Name] = entry[*model.Factory]{value: f, insertedAt: s.now()}
	s.attribute(f.Location.FileID).factoryNames[f.Name] = struct{}{}
}

func (s *Store) putTrait(t *model.Trait) {
	key := t.Key()
	if old, ok := s.traits[key]; ok {
		s.unattributeTrait(old.value)
	}
	s.traits[key] = entry[*model.Trait]{value: t, insertedAt: s.now()}
	s.attribute(t.Location.FileID).traitKeys[key] = struct{}{}
}

// liveFactory returns the factory if cached and within the TTL,
// evicting it otherwise.
func (s *Store) liveFactory(name string) (*model.Factory, bool) {
	e, ok := s.factories[name]
	if !ok {
		return nil, false
	}
	if s.now().Sub(e.insertedAt) > s.ttl {
		s.dropFactory(name)
		return nil, false
	}
	return e.value, true
}

func (s *Store) liveTrait(key string) (*model.Trait, bool) {
	e, ok := s.traits[key]
	if !ok {
		return nil, false
	}
	if s.now().Sub(e.insertedAt) > s.ttl {
		s.dropTrait(key)
		return nil, false
	}
	return e.value, true
}

// dropFactory removes the factory and its file attribution.
func (s *Store) dropFactory(name string) {
	e, ok := s.factories[name]
	if !ok {
		return
	}
	delete(s.factories, name)
	s.unattributeFactory(e.value)
}

func (s *Store) dropTrait(key string) {
	e, ok := s.traits[key]
	if !ok {
		return
	}
	delete(s.traits, key)
	s.unattributeTrait(e.value)
}

func (s *Store) unattributeFactory(f *model.Factory) {
	if fi, ok := s.files[f.Location.FileID]; ok {
		delete(fi.factoryNames, f.Name)
	}
}

func (s *Store) unattributeTrait(t *model.Trait) {
	if fi, ok := s.files[t.Location.FileID]; ok {
		delete(fi.traitKeys, t.Key())
	}
}

// removeFileAttributionLocked deletes everything the file contributed
// and forgets the file. Entities whose live entry has since been
// re-attributed to another file are left untouched.
func (s *Store) removeFileAttributionLocked(fileID string) {
	fi, ok := s.files[fileID]
	if !ok {
		return
	}
	for name := range fi.factoryNames {
		if e, ok := s.factories[name]; ok && e.value.Location.FileID == fileID {
			delete(s.factories, name)
		}
	}
	for key := range fi.traitKeys {
		if e, ok := s.traits[key]; ok && e.value.Location.FileID == fileID {
			delete(s.traits, key)
		}
	}
	delete(s.files, fileID)
}
