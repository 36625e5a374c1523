package transform

// LoaderShim is the minimal module registry placed at the head of bundles.
// Modules are registered with define and instantiated lazily by
// requireModule, which hands each one its exports, require and module
// objects.
const LoaderShim = `var define, requireModule, require, requirejs, Ember;

(function(global) {
  Ember = global.Ember = global.Ember || {};
  var registry = {};
  var seen = {};

  define = function(name, deps, callback) {
    registry[name] = { deps: deps, callback: callback };
  };

  requirejs = require = requireModule = function(name) {
    if (seen.hasOwnProperty(name)) {
      return seen[name].exports;
    }
    var mod = registry[name];
    if (!mod) {
      throw new Error('Could not find module ' + name);
    }
    var module = { exports: {} };
    seen[name] = module;
    var reified = [];
    for (var i = 0; i < mod.deps.length; i++) {
      var dep = mod.deps[i];
      if (dep === 'exports') {
        reified.push(module.exports);
      } else if (dep === 'module') {
        reified.push(module);
      } else if (dep === 'require') {
        reified.push(requireModule);
      } else {
        reified.push(requireModule(dep));
      }
    }
    var value = mod.callback.apply(this, reified);
    if (value !== undefined) {
      module.exports = value;
    }
    return module.exports;
  };

  requirejs._eak_seen = registry;
  Ember.__loader = { define: define, require: requireModule, registry: registry };
})(this);
`
